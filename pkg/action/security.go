package action

import "net/http"

var (
	OperationLock   = Operation{Service: "rlu_v1", Operation: "LOCK"}
	OperationUnlock = Operation{Service: "rlu_v1", Operation: "UNLOCK"}
)

// Lock locks all doors.
func Lock() *Request {
	op := OperationLock
	return &Request{Method: http.MethodPost, Path: "access/lock", Security: &op}
}

// Unlock unlocks all doors.
func Unlock() *Request {
	op := OperationUnlock
	return &Request{Method: http.MethodPost, Path: "access/unlock", Security: &op}
}

// RefreshData asks the vehicle to upload fresh status data. The vehicle must be reachable over
// the mobile network, and the request counts against a daily quota.
func RefreshData() *Request {
	return &Request{Method: http.MethodPost, Path: "vehiclewakeuptrigger"}
}

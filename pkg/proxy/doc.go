/*
Package proxy implements a local REST API for sending commands to vehicles on one account.

The proxy logs in once and shares the session between clients, so scripts and home automation
systems don't each need the account password. Endpoints:

	GET  /api/1/vehicles
	GET  /api/1/vehicles/{vin}/status
	GET  /api/1/vehicles/{vin}/trips
	POST /api/1/vehicles/{vin}/command/{command}

Command names match the audi-control sub-commands with underscores instead of dashes (for example
"climate_start"). Command parameters are passed as a JSON object in the request body.
*/
package proxy

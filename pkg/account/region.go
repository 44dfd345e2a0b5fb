package account

import (
	"fmt"
	"sort"
	"strings"
)

// Region describes the national deployment of the vehicle cloud. The identity provider, OAuth
// client and API servers differ between regions, and accounts only exist in one of them.
type Region struct {
	Country    string
	ClientID   string
	AuthURL    string
	TokenURL   string
	APIBaseURL string
	// RedirectURL is registered with the identity provider. It uses a custom scheme, so the login
	// flow intercepts the redirect instead of following it.
	RedirectURL string
	Scopes      []string
}

var defaultScopes = []string{"address", "profile", "badge", "birthdate", "birthplace", "nationalIdentifier", "nationality", "profession", "email", "vin", "phone", "nickname", "name", "picture", "mbb", "gallery", "openid"}

var regions = map[string]Region{
	"DE": {
		Country:     "DE",
		ClientID:    "09b6cbec-cd19-4589-82fd-363dfa8c24da@apps_vw-dilab_com",
		AuthURL:     "https://identity.vwgroup.io/oidc/v1/authorize",
		TokenURL:    "https://emea.bff.cariad.digital/login/v1/idk/token",
		APIBaseURL:  "https://emea.bff.cariad.digital",
		RedirectURL: "myaudi:///",
		Scopes:      defaultScopes,
	},
	"US": {
		Country:     "US",
		ClientID:    "09b6cbec-cd19-4589-82fd-363dfa8c24da@apps_vw-dilab_com",
		AuthURL:     "https://identity.vwgroup.io/oidc/v1/authorize",
		TokenURL:    "https://na.bff.cariad.digital/login/v1/idk/token",
		APIBaseURL:  "https://na.bff.cariad.digital",
		RedirectURL: "myaudi:///",
		Scopes:      defaultScopes,
	},
	"CA": {
		Country:     "CA",
		ClientID:    "09b6cbec-cd19-4589-82fd-363dfa8c24da@apps_vw-dilab_com",
		AuthURL:     "https://identity.vwgroup.io/oidc/v1/authorize",
		TokenURL:    "https://na.bff.cariad.digital/login/v1/idk/token",
		APIBaseURL:  "https://na.bff.cariad.digital",
		RedirectURL: "myaudi:///",
		Scopes:      defaultScopes,
	},
	"CN": {
		Country:     "CN",
		ClientID:    "addc8df4-f4c6-4f4b-9e48-4b1cb5a5ad5a@apps_vw-dilab_com",
		AuthURL:     "https://identity.vwgroup.cn/oidc/v1/authorize",
		TokenURL:    "https://cn.bff.cariad.digital/login/v1/idk/token",
		APIBaseURL:  "https://cn.bff.cariad.digital",
		RedirectURL: "myaudi:///",
		Scopes:      defaultScopes,
	},
}

// RegionByCountry returns the Region serving country (DE, US, CA, or CN, in any case).
func RegionByCountry(country string) (Region, error) {
	region, ok := regions[strings.ToUpper(strings.TrimSpace(country))]
	if !ok {
		return Region{}, fmt.Errorf("unsupported country %q (expected one of %s)", country, strings.Join(Countries(), ", "))
	}
	return region, nil
}

// Countries lists the supported country codes.
func Countries() []string {
	countries := make([]string, 0, len(regions))
	for c := range regions {
		countries = append(countries, c)
	}
	sort.Strings(countries)
	return countries
}

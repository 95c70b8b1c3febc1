package config

import "strings"

// SocialProvider describes an OIDC provider the dev server accepts social logins from
type SocialProvider struct {
	Name         string
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

type SocialConfig interface {
	GetSocialProviders() []SocialProvider
}

type Social struct{}

var _ SocialConfig = Social{}

// GetSocialProviders reads SOCIAL_PROVIDERS (e.g. "google,linkedin") and for each
// name the <NAME>_ISSUER, <NAME>_CLIENT_ID, <NAME>_CLIENT_SECRET and <NAME>_REDIRECT_URL variables.
// Providers without an issuer or client id are skipped.
func (Social) GetSocialProviders() []SocialProvider {
	var providers []SocialProvider
	for _, name := range strings.Split(GetEnv("SOCIAL_PROVIDERS", ""), ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		prefix := strings.ToUpper(name) + "_"
		p := SocialProvider{
			Name:         name,
			Issuer:       GetEnv(prefix+"ISSUER", ""),
			ClientID:     GetEnv(prefix+"CLIENT_ID", ""),
			ClientSecret: GetEnv(prefix+"CLIENT_SECRET", ""),
			RedirectURL:  GetEnv(prefix+"REDIRECT_URL", ""),
			Scopes:       []string{"email", "profile"},
		}
		if p.Issuer == "" || p.ClientID == "" {
			continue
		}
		providers = append(providers, p)
	}
	return providers
}

package identity

import "strings"

// Tokens is what a successful credential exchange returns. RefreshToken is
// empty on a refresh that did not rotate the refresh token.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	// Profile holds any identity fields the server returned alongside the tokens.
	Profile *Profile
}

// Profile is the user's identity as returned by the personal-info endpoint.
type Profile struct {
	ID        string         `json:"id,omitempty"`
	Email     string         `json:"email,omitempty"`
	Username  string         `json:"username,omitempty"`
	FirstName string         `json:"first_name,omitempty"`
	LastName  string         `json:"last_name,omitempty"`
	Extra     map[string]any `json:"-"`
}

// Name returns the display name, falling back to username then email.
func (p *Profile) Name() string {
	if p == nil {
		return ""
	}
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		return name
	}
	if p.Username != "" {
		return p.Username
	}
	return p.Email
}

// Merge overlays the non-empty fields of other onto a copy of p.
func (p *Profile) Merge(other *Profile) *Profile {
	merged := &Profile{}
	if p != nil {
		*merged = *p
		merged.Extra = copyExtra(p.Extra)
	}
	if other == nil {
		return merged
	}
	if other.ID != "" {
		merged.ID = other.ID
	}
	if other.Email != "" {
		merged.Email = other.Email
	}
	if other.Username != "" {
		merged.Username = other.Username
	}
	if other.FirstName != "" {
		merged.FirstName = other.FirstName
	}
	if other.LastName != "" {
		merged.LastName = other.LastName
	}
	for k, v := range other.Extra {
		if merged.Extra == nil {
			merged.Extra = make(map[string]any)
		}
		merged.Extra[k] = v
	}
	return merged
}

// Clone returns a deep copy, nil for nil.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	return (*Profile)(nil).Merge(p)
}

func (p *Profile) isZero() bool {
	return p == nil || (p.ID == "" && p.Email == "" && p.Username == "" && p.FirstName == "" && p.LastName == "" && len(p.Extra) == 0)
}

func copyExtra(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// profileFromMap splits a decoded JSON object into the known profile fields and Extra.
func profileFromMap(m map[string]any, skip ...string) *Profile {
	p := &Profile{}
	skipped := make(map[string]struct{}, len(skip))
	for _, k := range skip {
		skipped[k] = struct{}{}
	}
	for k, v := range m {
		if _, ok := skipped[k]; ok {
			continue
		}
		s, isString := v.(string)
		switch {
		case k == "id" && isString:
			p.ID = s
		case k == "email" && isString:
			p.Email = s
		case k == "username" && isString:
			p.Username = s
		case k == "first_name" && isString:
			p.FirstName = s
		case k == "last_name" && isString:
			p.LastName = s
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[k] = v
		}
	}
	return p
}

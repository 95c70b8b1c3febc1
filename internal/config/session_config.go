package config

import "time"

type SessionConfig interface {
	GetLoginTimeout() time.Duration
	GetRefreshTimeout() time.Duration
	GetProfileTimeout() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetLoginTimeout() time.Duration {
	return GetDuration("SESSION_LOGIN_TIMEOUT", 10*time.Second)
}

func (Session) GetRefreshTimeout() time.Duration {
	return GetDuration("SESSION_REFRESH_TIMEOUT", 10*time.Second)
}

func (Session) GetProfileTimeout() time.Duration {
	return GetDuration("SESSION_PROFILE_TIMEOUT", 5*time.Second)
}

// GetDuration parses a Go duration string from envVar, falling back to defaultValue
// when the variable is unset or unparsable.
func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(GetEnv(envVar, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

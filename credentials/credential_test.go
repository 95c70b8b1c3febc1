package credentials_test

import (
	"testing"

	"github.com/jrsteele09/dashboard-session/credentials"
	"github.com/stretchr/testify/require"
)

func TestCredentialShape(t *testing.T) {
	tests := []struct {
		name     string
		cred     credentials.Credential
		complete bool
		empty    bool
		corrupt  bool
	}{
		{"both", credentials.Credential{AccessToken: "AT", RefreshToken: "RT"}, true, false, false},
		{"none", credentials.Credential{}, false, true, false},
		{"access only", credentials.Credential{AccessToken: "AT"}, false, false, true},
		{"refresh only", credentials.Credential{RefreshToken: "RT"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.complete, tt.cred.Complete())
			require.Equal(t, tt.empty, tt.cred.Empty())
			require.Equal(t, tt.corrupt, tt.cred.Corrupt())
		})
	}
}

package envsecrets

import (
	"context"
	"strings"
	"testing"
)

func TestRegistryCredentials(t *testing.T) {
	t.Setenv(usernameEnv, "ci")
	t.Setenv(tokenEnv, "hunter2")

	creds, err := New().RegistryCredentials(context.Background())
	if err != nil {
		t.Fatalf("RegistryCredentials() error = %v", err)
	}
	if creds.Username != "ci" || creds.Token != "hunter2" {
		t.Errorf("creds = %+v, want ci/hunter2", creds)
	}
}

func TestRegistryCredentials_Missing(t *testing.T) {
	tests := []struct {
		name     string
		username string
		token    string
		want     string
	}{
		{name: "no username", token: "hunter2", want: usernameEnv},
		{name: "no token", username: "ci", want: tokenEnv},
		{name: "neither", want: usernameEnv},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(usernameEnv, tt.username)
			t.Setenv(tokenEnv, tt.token)

			_, err := New().RegistryCredentials(context.Background())
			if err == nil {
				t.Fatal("RegistryCredentials() error = nil, want failure")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should name %s", err, tt.want)
			}
		})
	}
}

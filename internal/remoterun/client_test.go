package remoterun

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRunSendsCodeAndInputs(t *testing.T) {
	var got RunRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(RunResponse{Success: true, Stdout: "hi\n"})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Run(context.Background(), `print("hi")`, []string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, `print("hi")`, got.Code)
	assert.Equal(t, []string{"a", "b"}, got.Inputs)
	assert.True(t, resp.Success)
	assert.Equal(t, "hi\n", resp.Stdout)
}

func TestClientRunDecodedFailureIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(RunResponse{Success: false, Error: "main.c:3: expected ';'"})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Run(context.Background(), "int main(){}", nil)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "main.c:3: expected ';'", resp.Error)
}

func TestClientRunNonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Run(context.Background(), "code", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestClientRunUnreachableIsAnError(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1").Run(context.Background(), "code", nil)
	require.Error(t, err)
}

func TestClientRunMalformedBodyIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Run(context.Background(), "code", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode run response")
}

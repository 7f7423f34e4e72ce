package handlers_test

import (
	"net/url"
	"testing"

	"github.com/farmercorner/motor-dashboard/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func removeUser(t *testing.T, ts *testutil.TestServer, id string) {
	t.Helper()
	ts.Store.RemoveUser(mustUUID(t, id))
}

func mustUUID(t *testing.T, raw string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(raw)
	require.NoError(t, err)
	return id
}

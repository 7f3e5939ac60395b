package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mlsq/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/services"
)

// mockAdapter is a mock implementation of driving.ProtocolAdapter.
type mockAdapter struct {
	graph   *domain.MetadataGraph
	results *domain.ResultSet
	lookups map[string]domain.LookupTable
	raw     *domain.RawMetadata

	connectErr error
	opErr      error

	connected    []domain.Connection
	disconnected []domain.SessionHandle
	lastSpec     domain.QuerySpec
	lastLookup   [2]string
}

func (m *mockAdapter) Connect(_ context.Context, conn domain.Connection) (domain.SessionHandle, error) {
	if m.connectErr != nil {
		return "", m.connectErr
	}
	m.connected = append(m.connected, conn)
	return domain.SessionHandle(fmt.Sprintf("h-%d", len(m.connected))), nil
}

func (m *mockAdapter) Disconnect(_ context.Context, handle domain.SessionHandle) {
	m.disconnected = append(m.disconnected, handle)
}

func (m *mockAdapter) ListResources(_ context.Context, _ domain.SessionHandle) (*domain.MetadataGraph, error) {
	return m.graph, m.opErr
}

func (m *mockAdapter) RunQuery(
	_ context.Context, _ domain.SessionHandle, spec domain.QuerySpec,
) (*domain.ResultSet, error) {
	m.lastSpec = spec
	return m.results, m.opErr
}

func (m *mockAdapter) GetLookups(
	_ context.Context, _ domain.SessionHandle, resourceID, classID string,
) (map[string]domain.LookupTable, error) {
	m.lastLookup = [2]string{resourceID, classID}
	return m.lookups, m.opErr
}

func (m *mockAdapter) ExportMetadata(_ context.Context, _ domain.SessionHandle) (*domain.RawMetadata, error) {
	return m.raw, m.opErr
}

func (m *mockAdapter) Session(handle domain.SessionHandle) (domain.SessionInfo, error) {
	return domain.SessionInfo{Handle: handle}, nil
}

func (m *mockAdapter) Sessions() []domain.SessionInfo {
	return nil
}

type testEnv struct {
	adapter  *mockAdapter
	profiles *services.ProfileService
	secrets  *memory.SecretStore
}

// setupTestServices wires a mock adapter and an in-memory profile service
// into the package-level services. The returned func restores them.
func setupTestServices() (*testEnv, func()) {
	env := &testEnv{
		adapter: &mockAdapter{},
		secrets: memory.NewSecretStore(),
	}
	env.profiles = services.NewProfileService(memory.NewProfileStore(), env.secrets, nil)

	oldAdapter, oldProfiles, oldWatch := adapterService, profileService, watchProfiles
	adapterService = env.adapter
	profileService = env.profiles
	watchProfiles = nil

	return env, func() {
		adapterService, profileService, watchProfiles = oldAdapter, oldProfiles, oldWatch
		resetFlags()
	}
}

func resetFlags() {
	profileProtocol, profileURL, profileAuth = "rets", "", ""
	profileUsername, profileUserAgent, profileVersion = "", "", ""
	profileTokenURL, profileClientID, profileScopes = "", "", nil
	profileTimeout, profileRateLimit, profileJSON = 0, 0, false
	resourcesJSON = false
	queryResource, queryClass, queryFilter, querySelect, queryLimit, queryJSON = "", "", "", nil, 10, false
	lookupsResource, lookupsClass, lookupsJSON = "", "", false
	metadataOutput = ""
}

// runCmd executes the root command with args and returns stdout and stderr.
func runCmd(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// addRETSProfile saves a basic-auth RETS profile named crmls.
func addRETSProfile(t *testing.T, env *testEnv) *domain.Profile {
	t.Helper()
	p, err := env.profiles.Add(context.Background(), domain.Profile{
		Name:      "crmls",
		Protocol:  domain.ProtocolRETS,
		BaseURL:   "https://rets.example.com/login",
		Auth:      domain.AuthMethodBasic,
		Username:  "agent",
		UserAgent: "MyApp/1.0",
	}, map[domain.SecretKind]string{domain.SecretPassword: "s3cret"})
	require.NoError(t, err)
	return p
}

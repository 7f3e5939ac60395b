package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
)

// fakeClient is a scripted ProtocolClient. Each *Errs slice is consumed one
// error per call; an exhausted slice means success.
type fakeClient struct {
	mu sync.Mutex

	kind     domain.ProtocolKind
	graph    *domain.MetadataGraph
	result   *domain.ResultSet
	tables   map[string]domain.LookupTable
	loginErr error
	// expiredBeforeRelogin fails every Search with an expired session until
	// the second login.
	expiredBeforeRelogin bool

	loginErrs    []error
	logoutErr    error
	metadataErrs []error
	searchErrs   []error
	lookupErrs   []error

	logins, logouts, metadataCalls, searchCalls, lookupCalls int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		kind:  domain.ProtocolRETS,
		graph: retsGraph(),
		result: func() *domain.ResultSet {
			rs := domain.NewResultSet([]string{"ListingKey", "ListPrice"})
			rs.AppendRow([]string{"L1", "100000"})
			rs.Count = 1
			return rs
		}(),
		tables: map[string]domain.LookupTable{
			"Status": {Name: "ListingStatus", Values: []domain.LookupValue{{Value: "A", Label: "Active"}}},
		},
	}
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (c *fakeClient) Kind() domain.ProtocolKind { return c.kind }

func (c *fakeClient) Login(context.Context) (*driven.LoginResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logins++
	if c.loginErr != nil {
		return nil, c.loginErr
	}
	if err := pop(&c.loginErrs); err != nil {
		return nil, err
	}
	return &driven.LoginResult{
		LoginURL: "https://rets.example.com/login",
		Capabilities: map[string]string{
			domain.CapabilitySearch: "https://rets.example.com/search",
		},
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}, nil
}

func (c *fakeClient) Logout(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logouts++
	return c.logoutErr
}

func (c *fakeClient) FetchMetadata(context.Context) (*domain.MetadataGraph, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadataCalls++
	if err := pop(&c.metadataErrs); err != nil {
		return nil, err
	}
	return c.graph, nil
}

func (c *fakeClient) Search(context.Context, *domain.MetadataGraph, domain.QuerySpec) (*domain.ResultSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchCalls++
	if c.expiredBeforeRelogin && c.logins < 2 {
		return nil, expired()
	}
	if err := pop(&c.searchErrs); err != nil {
		return nil, err
	}
	return c.result, nil
}

func (c *fakeClient) ResolveLookups(
	context.Context, *domain.MetadataGraph, string, string,
) (map[string]domain.LookupTable, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookupCalls++
	if err := pop(&c.lookupErrs); err != nil {
		return nil, err
	}
	return c.tables, nil
}

func (c *fakeClient) counts() (logins, searches int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logins, c.searchCalls
}

// fakeFactory always returns the same client.
type fakeFactory struct {
	client  *fakeClient
	created int
}

func (f *fakeFactory) Create(conn domain.Connection) (driven.ProtocolClient, error) {
	f.created++
	f.client.kind = conn.Protocol
	return f.client, nil
}

func (f *fakeFactory) SupportedProtocols() []domain.ProtocolKind {
	return domain.AllProtocols()
}

func expired() error {
	return &domain.AuthError{URL: "https://rets.example.com/search", ReplyCode: 20701, ReplyText: "Not logged in", Expired: true}
}

func networkErr() error {
	return &domain.NetworkError{Op: "GET", URL: "https://rets.example.com/search", Err: context.DeadlineExceeded}
}

func retsConnection() domain.Connection {
	return domain.Connection{
		ID:       "c1",
		Name:     "Demo",
		Protocol: domain.ProtocolRETS,
		BaseURL:  "https://rets.example.com/login",
		Basic:    &domain.BasicCredentials{Username: "agent", Password: "secret"},
	}
}

// retsGraph has Property (RES, and LND with a gap) and Agent (AGT).
func retsGraph() *domain.MetadataGraph {
	return &domain.MetadataGraph{
		Protocol: domain.ProtocolRETS,
		System:   domain.SystemInfo{ID: "DEMO"},
		Resources: []domain.ResourceDescriptor{
			{
				ID:       "Property",
				KeyField: "ListingKey",
				Classes: []domain.ClassDescriptor{
					{
						ID: "RES",
						Fields: []domain.FieldDescriptor{
							{Name: "ListingKey", SystemName: "ListingKey"},
							{Name: "ListPrice", SystemName: "ListPrice", LongName: "List Price"},
							{Name: "Status", SystemName: "Status", LookupName: "ListingStatus"},
						},
					},
					{
						ID:     "LND",
						Fields: []domain.FieldDescriptor{},
						Gaps:   []domain.MetadataGap{{Type: "METADATA-TABLE", ID: "Property:LND", Reason: "HTTP 500"}},
					},
				},
			},
			{
				ID: "Agent",
				Classes: []domain.ClassDescriptor{
					{ID: "AGT", Fields: []domain.FieldDescriptor{{Name: "AgentKey", SystemName: "AgentKey"}}},
				},
			},
		},
		Raw: domain.RawMetadata{
			ContentType: "text/xml",
			Parts: []domain.RawMetadataPart{
				{Name: "METADATA-SYSTEM", Body: []byte("<RETS ReplyCode=\"0\"/>")},
			},
		},
	}
}

func resoGraph() *domain.MetadataGraph {
	return &domain.MetadataGraph{
		Protocol: domain.ProtocolRESO,
		Resources: []domain.ResourceDescriptor{
			{
				ID:         "Property",
				KeyField:   "ListingKey",
				EntityType: "org.reso.metadata.Property",
				Fields: []domain.FieldDescriptor{
					{Name: "ListingKey", Nullable: false},
					{Name: "ListPrice", Nullable: true},
					{Name: "Appliances", LookupName: "org.reso.metadata.enums.Appliances", Collection: true},
				},
			},
		},
	}
}

package rets

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
	"github.com/custodia-labs/mlsq/internal/parsers/compact"
)

// compactRegistry is a ParserRegistry serving only the COMPACT parser.
type compactRegistry struct{}

func (compactRegistry) Parse(_ domain.ProtocolKind, body []byte, ct string) (*domain.ResultSet, error) {
	return compact.New().Parse(body, ct)
}

func (compactRegistry) Register(driven.ResponseParser) {}

func (compactRegistry) SupportedContentTypes(domain.ProtocolKind) []string {
	return compact.New().SupportedContentTypes()
}

// fakeServer is a scripted RETS server.
type fakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []string
	// metadata maps "Type|ID" to a COMPACT body; missing keys return 500.
	metadata map[string]string
	// search is the Search response body.
	search string
	// searchStatus overrides the Search HTTP status when non-zero.
	searchStatus int
	lastMethod   string
	lastForm     map[string]string
}

const loginBody = `<RETS ReplyCode="0" ReplyText="Operation Successful">
<RETS-RESPONSE>
MemberName=Test Agent
User=agent,1,AGENT,1
Search=/rets/search
GetMetadata=/rets/getmetadata
Logout=/rets/logout
TimeoutSeconds=1800
</RETS-RESPONSE>
</RETS>`

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{metadata: map[string]string{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL.Path)
	f.mu.Unlock()

	user, pass, ok := r.BasicAuth()
	if !ok || user != "agent" || pass != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch r.URL.Path {
	case "/rets/login":
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "S1", Path: "/"})
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, loginBody)
	case "/rets/getmetadata":
		key := r.URL.Query().Get("Type") + "|" + r.URL.Query().Get("ID")
		f.mu.Lock()
		body, ok := f.metadata[key]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, body)
	case "/rets/search":
		_ = r.ParseForm()
		f.mu.Lock()
		f.lastMethod = r.Method
		f.lastForm = map[string]string{}
		for k := range r.Form {
			f.lastForm[k] = r.Form.Get(k)
		}
		status, body := f.searchStatus, f.search
		f.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, body)
	case "/rets/logout":
		fmt.Fprint(w, `<RETS ReplyCode="0" ReplyText="Logged out"/>`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeServer) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeServer) count(path string) int {
	n := 0
	for _, p := range f.paths() {
		if p == path {
			n++
		}
	}
	return n
}

func (f *fakeServer) setSearch(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchStatus = status
	f.search = body
}

func (f *fakeServer) setMetadata(mtype, id, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadata[mtype+"|"+id] = body
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(domain.Connection{
		ID:       "c1",
		Protocol: domain.ProtocolRETS,
		BaseURL:  baseURL,
		Basic:    &domain.BasicCredentials{Username: "agent", Password: "secret"},
	}, compactRegistry{}, nil)
	require.NoError(t, err)
	return c
}

// compactDoc builds a COMPACT metadata document.
func compactDoc(element, attrs string, columns []string, rows ...[]string) string {
	var b strings.Builder
	b.WriteString(`<RETS ReplyCode="0" ReplyText="OK">` + "\n")
	fmt.Fprintf(&b, "<%s %s>\n", element, attrs)
	b.WriteString("<COLUMNS>\t" + strings.Join(columns, "\t") + "\t</COLUMNS>\n")
	for _, r := range rows {
		b.WriteString("<DATA>\t" + strings.Join(r, "\t") + "\t</DATA>\n")
	}
	fmt.Fprintf(&b, "</%s>\n</RETS>", element)
	return b.String()
}

const systemDoc = `<RETS ReplyCode="0" ReplyText="OK">
<METADATA-SYSTEM Version="01.72.10306" Date="2024-05-01T00:00:00Z">
<SYSTEM SystemID="DEMO" SystemDescription="Demo MLS"/>
<COMMENTS/>
</METADATA-SYSTEM>
</RETS>`

// seedMetadata installs two resources: Property (RES, LND) and Agent (AGT).
func (f *fakeServer) seedMetadata() {
	f.setMetadata(MetadataSystem, "*", systemDoc)
	f.setMetadata(MetadataResource, "0", compactDoc(MetadataResource, `Version="1.0"`,
		[]string{"ResourceID", "StandardName", "VisibleName", "KeyField"},
		[]string{"Property", "Property", "Property", "ListingKey"},
		[]string{"Agent", "Agent", "Agents", "AgentKey"},
	))
	f.setMetadata(MetadataClass, "Property", compactDoc(MetadataClass, `Resource="Property"`,
		[]string{"ClassName", "VisibleName", "Description"},
		[]string{"RES", "Residential", "Residential listings"},
		[]string{"LND", "Land", "Lots and land"},
	))
	f.setMetadata(MetadataClass, "Agent", compactDoc(MetadataClass, `Resource="Agent"`,
		[]string{"ClassName", "VisibleName", "Description"},
		[]string{"AGT", "Agent", "Agents"},
	))
	tableCols := []string{"SystemName", "LongName", "DataType", "MaximumLength", "Interpretation", "LookupName", "Required"}
	f.setMetadata(MetadataTable, "Property:RES", compactDoc(MetadataTable, `Resource="Property" Class="RES"`,
		tableCols,
		[]string{"ListingKey", "Listing Key", "Character", "20", "", "", "1"},
		[]string{"ListPrice", "List Price", "Decimal", "12", "", "", "0"},
		[]string{"Status", "Status", "Character", "1", "Lookup", "ListingStatus", "0"},
		[]string{"Heating", "Heating", "Character", "50", "LookupMulti", "HeatingType", "0"},
		[]string{"PrevStatus", "Previous Status", "Character", "1", "Lookup", "ListingStatus", "0"},
	))
	f.setMetadata(MetadataTable, "Property:LND", compactDoc(MetadataTable, `Resource="Property" Class="LND"`,
		tableCols,
		[]string{"ListingKey", "Listing Key", "Character", "20", "", "", "1"},
	))
	f.setMetadata(MetadataTable, "Agent:AGT", compactDoc(MetadataTable, `Resource="Agent" Class="AGT"`,
		tableCols,
		[]string{"AgentKey", "Agent Key", "Character", "20", "", "", "1"},
	))
}

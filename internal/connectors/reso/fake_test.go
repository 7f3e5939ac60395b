package reso

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
	"github.com/custodia-labs/mlsq/internal/parsers"
	"github.com/custodia-labs/mlsq/internal/parsers/atom"
	"github.com/custodia-labs/mlsq/internal/parsers/odata"
)

// resoRegistry dispatches JSON to the odata parser and everything else to atom.
type resoRegistry struct{}

func (resoRegistry) Parse(_ domain.ProtocolKind, body []byte, ct string) (*domain.ResultSet, error) {
	if strings.Contains(parsers.MediaType(ct), "json") {
		return odata.New().Parse(body, ct)
	}
	return atom.New().Parse(body, ct)
}

func (resoRegistry) Register(driven.ResponseParser) {}

func (resoRegistry) SupportedContentTypes(domain.ProtocolKind) []string {
	return append(odata.New().SupportedContentTypes(), atom.New().SupportedContentTypes()...)
}

const edmDoc = `<?xml version="1.0" encoding="utf-8"?>
<edmx:Edmx Version="4.0" xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx">
  <edmx:DataServices>
    <Schema Namespace="org.reso.metadata" xmlns="http://docs.oasis-open.org/odata/ns/edm">
      <EntityType Name="Property">
        <Key><PropertyRef Name="ListingKey"/></Key>
        <Property Name="ListingKey" Type="Edm.String" MaxLength="255" Nullable="false"/>
        <Property Name="ListPrice" Type="Edm.Decimal"/>
        <Property Name="StandardStatus" Type="org.reso.metadata.enums.StandardStatus">
          <Annotation Term="RESO.OData.Metadata.StandardName" String="Standard Status"/>
        </Property>
        <Property Name="Appliances" Type="Collection(org.reso.metadata.enums.Appliances)"/>
        <Property Name="Heating" Type="Collection(Edm.String)"/>
      </EntityType>
      <EntityType Name="Member">
        <Key><PropertyRef Name="MemberKey"/></Key>
        <Property Name="MemberKey" Type="Edm.String"/>
      </EntityType>
      <EntityContainer Name="Default">
        <EntitySet Name="Property" EntityType="org.reso.metadata.Property"/>
        <EntitySet Name="Member" EntityType="org.reso.metadata.Member"/>
      </EntityContainer>
    </Schema>
    <Schema Namespace="org.reso.metadata.enums" xmlns="http://docs.oasis-open.org/odata/ns/edm">
      <EnumType Name="StandardStatus">
        <Member Name="Active" Value="0">
          <Annotation Term="RESO.OData.Metadata.StandardName" String="Active"/>
        </Member>
        <Member Name="ActiveUnderContract" Value="1">
          <Annotation Term="RESO.OData.Metadata.StandardName" String="Active Under Contract"/>
        </Member>
        <Member Name="Closed" Value="2"/>
      </EnumType>
      <EnumType Name="Appliances">
        <Member Name="Dishwasher" Value="0"/>
        <Member Name="Refrigerator" Value="1"/>
      </EnumType>
    </Schema>
  </edmx:DataServices>
</edmx:Edmx>`

const propertyJSON = `{
  "@odata.context": "$metadata#Property",
  "@odata.count": 42,
  "value": [
    {"ListingKey": "L1", "ListPrice": 250000, "StandardStatus": "Active", "Heating": ["Forced Air", "Radiant"]},
    {"ListingKey": "L2", "ListPrice": null, "StandardStatus": "Closed", "Heating": []}
  ]
}`

const propertyAtom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"
      xmlns:d="http://docs.oasis-open.org/odata/ns/data"
      xmlns:m="http://docs.oasis-open.org/odata/ns/metadata">
  <m:count>1</m:count>
  <entry>
    <content type="application/xml">
      <m:properties>
        <d:ListingKey>L9</d:ListingKey>
        <d:ListPrice m:null="true"/>
      </m:properties>
    </content>
  </entry>
</feed>`

// fakeService is a scripted RESO Web API with an OAuth2 token endpoint.
type fakeService struct {
	*httptest.Server

	mu        sync.Mutex
	issued    int
	revoked   map[string]bool
	tokenForm map[string]string
	requests  []*recorded
	// rejectJSON makes entity set requests answer 415 to JSON.
	rejectJSON bool
	// entity maps entity set names to JSON bodies, or Atom bodies served
	// when rejectJSON is set.
	entity map[string]string
}

type recorded struct {
	Path   string
	Query  map[string]string
	Accept string
	Auth   string
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{
		revoked: map[string]bool{},
		entity:  map[string]string{"Property": propertyJSON},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeService) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/token" {
		f.token(w, r)
		return
	}

	rec := &recorded{Path: r.URL.Path, Query: map[string]string{}, Accept: r.Header.Get("Accept"), Auth: r.Header.Get("Authorization")}
	for k := range r.URL.Query() {
		rec.Query[k] = r.URL.Query().Get(k)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	tok := strings.TrimPrefix(rec.Auth, "Bearer ")
	valid := strings.HasPrefix(rec.Auth, "Bearer ") && tok != "" && !f.revoked[tok]
	rejectJSON := f.rejectJSON
	f.mu.Unlock()

	if !valid {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":"401","message":"token invalid"}}`)
		return
	}
	if r.Header.Get("OData-Version") != ODataVersion {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch name := strings.TrimPrefix(r.URL.Path, "/odata"); name {
	case "", "/":
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"value":[{"name":"Property","url":"Property"},{"name":"Member","url":"Member"}]}`)
	case "/$metadata":
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, edmDoc)
	default:
		set := strings.TrimPrefix(name, "/")
		f.mu.Lock()
		body, ok := f.entity[set]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if rejectJSON {
			if strings.HasPrefix(rec.Accept, "application/json") {
				w.WriteHeader(http.StatusUnsupportedMediaType)
				return
			}
			if !strings.HasPrefix(body, "<") {
				body = propertyAtom
			}
			w.Header().Set("Content-Type", "application/atom+xml")
			fmt.Fprint(w, body)
			return
		}
		w.Header().Set("Content-Type", "application/json; odata.metadata=minimal")
		fmt.Fprint(w, body)
	}
}

func (f *fakeService) token(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	form := map[string]string{}
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}
	f.mu.Lock()
	f.tokenForm = form
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if form["client_secret"] != "csecret" || form["password"] != "secret" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"bad credentials"}`)
		return
	}

	f.mu.Lock()
	f.issued++
	tok := fmt.Sprintf("T%d", f.issued)
	f.mu.Unlock()
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": tok,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (f *fakeService) setEntity(set, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if body == "" {
		delete(f.entity, set)
		return
	}
	f.entity[set] = body
}

func (f *fakeService) setRejectJSON(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectJSON = v
}

func (f *fakeService) revoke(tok string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[tok] = true
}

func (f *fakeService) last() *recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeService) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

func oauthConnection(f *fakeService) domain.Connection {
	return domain.Connection{
		ID:       "r1",
		Protocol: domain.ProtocolRESO,
		BaseURL:  f.URL + "/odata/",
		OAuth: &domain.OAuthClientCredentials{
			TokenURL:     f.URL + "/token",
			ClientID:     "client",
			ClientSecret: "csecret",
			Username:     "agent",
			Password:     "secret",
		},
	}
}

func newOAuthClient(t *testing.T, f *fakeService) *Client {
	t.Helper()
	c, err := New(oauthConnection(f), resoRegistry{}, Options{})
	require.NoError(t, err)
	return c
}

// Package arcgistest provides an in-process fake of the portal and
// geoenrichment REST endpoints for tests.
package arcgistest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// GeoenrichmentPath is where the fake geoenrichment service is mounted.
const GeoenrichmentPath = "/ge/arcgis/rest/services/World/geoenrichmentserver"

// Route names for [Server.Hits].
const (
	RouteSelf         = "portals/self"
	RouteUser         = "community/self"
	RouteSearch       = "search"
	RouteToken        = "generateToken"
	RouteCountries    = "Countries"
	RouteStandard     = "Infographics/Standard"
	RouteCreateReport = "CreateReport"
)

// Country is one entry of the Countries response.
type Country struct {
	ID          string
	Name        string
	Hierarchies []string
}

// Server is a fake portal. Exported fields may be changed between requests
// but not while one is in flight.
type Server struct {
	*httptest.Server

	// Token, when set, must accompany every request except generateToken.
	Token string

	// NoGeoenrichment hides the geoenrichment helper service.
	NoGeoenrichment bool

	Countries []Country
	Reports   map[string][]map[string]any // keyed "COUNTRY/hierarchy"
	Items     []map[string]any

	// ReportBody and ReportContentType are returned by CreateReport.
	ReportBody        []byte
	ReportContentType string

	// Username and Password are accepted by generateToken.
	Username string
	Password string

	mu       sync.Mutex
	hits     map[string]int
	lastForm url.Values
}

// NewServer starts a fake portal populated with [DefaultCountries] and
// closes it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		Countries:         DefaultCountries(),
		Reports:           map[string][]map[string]any{},
		ReportBody:        []byte("%PDF-1.7 fake"),
		ReportContentType: "application/pdf",
		Username:          "analyst",
		Password:          "s3cret",
		hits:              map[string]int{},
	}

	r := chi.NewRouter()
	r.Route("/sharing/rest", func(r chi.Router) {
		r.Post("/generateToken", s.count(RouteToken, s.handleToken))
		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Get("/portals/self", s.count(RouteSelf, s.handleSelf))
			r.Get("/community/self", s.count(RouteUser, s.handleUser))
			r.Get("/search", s.count(RouteSearch, s.handleSearch))
		})
	})
	r.Route(GeoenrichmentPath+"/Geoenrichment", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/Countries", s.count(RouteCountries, s.handleCountries))
		r.Get("/Infographics/Standard/{country}/{hierarchy}", s.count(RouteStandard, s.handleStandard))
		r.Post("/CreateReport", s.count(RouteCreateReport, s.handleCreateReport))
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// DefaultCountries returns a small country table: US and CA share
// esri2024, and US also has census.
func DefaultCountries() []Country {
	return []Country{
		{ID: "US", Name: "United States", Hierarchies: []string{"esri2024", "census"}},
		{ID: "CA", Name: "Canada", Hierarchies: []string{"esri2024", "statcan"}},
		{ID: "GB", Name: "United Kingdom", Hierarchies: []string{"esri2024"}},
	}
}

// StandardReport builds a report entry in the shape the service returns:
// reportID at the top level, everything else under metadata.
func StandardReport(id, title, country, hierarchy string) map[string]any {
	return map[string]any{
		"reportID": id,
		"metadata": map[string]any{
			"title":       title,
			"itemID":      fmt.Sprintf("%032x", len(id)*7919+len(title)),
			"formats":     []string{"pdf", "html", "xlsx"},
			"dataVintage": "2024",
			"countries":   country,
			"hierarchy":   hierarchy,
			"author":      "esri",
		},
	}
}

// ReportTemplate builds a search result item of type Report Template.
func ReportTemplate(id, title, owner string, keywords ...string) map[string]any {
	return map[string]any{
		"id":           id,
		"title":        title,
		"owner":        owner,
		"type":         "Report Template",
		"typeKeywords": keywords,
		"description":  title + " description",
		"properties": map[string]any{
			"countries": "US",
			"formats":   []string{"pdf", "html"},
		},
	}
}

// GeoenrichmentURL returns the advertised geoenrichment URL.
func (s *Server) GeoenrichmentURL() string {
	return s.URL + GeoenrichmentPath
}

// Hits returns how many requests route has served.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// GeoenrichmentHits returns the number of requests made to geoenrichment
// endpoints.
func (s *Server) GeoenrichmentHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[RouteCountries] + s.hits[RouteStandard] + s.hits[RouteCreateReport]
}

// LastReportForm returns the form of the most recent CreateReport call.
func (s *Server) LastReportForm() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastForm
}

func (s *Server) count(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[route]++
		s.mu.Unlock()
		h(w, r)
	}
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" {
			_ = r.ParseForm()
			if r.Form.Get("token") != s.Token {
				writeError(w, 498, "Invalid token.")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSelf(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"id":       "org0001",
		"name":     "Test Organization",
		"urlKey":   "test",
		"isPortal": false,
	}
	if !s.NoGeoenrichment {
		resp["helperServices"] = map[string]any{
			"geoenrichment": map[string]any{"url": s.GeoenrichmentURL()},
		}
	}
	writeJSON(w, resp)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"username": s.Username,
		"fullName": "Test Analyst",
		"email":    "analyst@example.com",
		"role":     "org_user",
		"orgId":    "org0001",
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, _ := strconv.Atoi(q.Get("start"))
	num, _ := strconv.Atoi(q.Get("num"))
	if start < 1 {
		start = 1
	}
	if num <= 0 {
		num = 10
	}

	from := min(start-1, len(s.Items))
	to := min(from+num, len(s.Items))
	next := -1
	if to < len(s.Items) {
		next = to + 1
	}
	writeJSON(w, map[string]any{
		"query":     q.Get("q"),
		"total":     len(s.Items),
		"start":     start,
		"num":       num,
		"nextStart": next,
		"results":   s.Items[from:to],
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, 400, "Unable to parse request.")
		return
	}
	if r.PostForm.Get("username") != s.Username || r.PostForm.Get("password") != s.Password {
		writeError(w, 400, "Unable to generate token.", "Invalid username or password.")
		return
	}
	writeJSON(w, map[string]any{
		"token":   "tok-" + s.Username,
		"expires": int64(4102444800000),
		"ssl":     true,
	})
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	countries := make([]map[string]any, 0, len(s.Countries))
	for _, c := range s.Countries {
		hs := make([]map[string]any, 0, len(c.Hierarchies))
		for i, h := range c.Hierarchies {
			hs = append(hs, map[string]any{"ID": h, "alias": h, "default": i == 0})
		}
		countries = append(countries, map[string]any{
			"id":          c.ID,
			"name":        c.Name,
			"hierarchies": hs,
		})
	}
	writeJSON(w, map[string]any{"countries": countries})
}

func (s *Server) handleStandard(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "country") + "/" + chi.URLParam(r, "hierarchy")
	reports, ok := s.Reports[key]
	if !ok {
		writeJSON(w, map[string]any{"reports": []any{}})
		return
	}
	writeJSON(w, map[string]any{"reports": reports})
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, 400, "Unable to parse request.")
		return
	}
	s.mu.Lock()
	s.lastForm = r.PostForm
	s.mu.Unlock()

	if r.PostForm.Get("report") == "missing" {
		writeError(w, 400, "Unable to create report.", "Report template not found.")
		return
	}
	w.Header().Set("Content-Type", s.ReportContentType)
	_, _ = w.Write(s.ReportBody)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string, details ...string) {
	if details == nil {
		details = []string{}
	}
	writeJSON(w, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

package website

import "time"

// WebVitals holds the last observed performance metrics for a site.
type WebVitals struct {
	LCP  float64 `json:"lcp"`
	FID  float64 `json:"fid"`
	CLS  float64 `json:"cls"`
	FCP  float64 `json:"fcp"`
	TTFB float64 `json:"ttfb"`
}

// Website is one tracked site in the registry.
//
// ID is assigned at creation from the wall clock (Unix milliseconds, bumped
// on collision) and is never reused. IsCapturing is transient: it is owned
// by whichever capture path set it and is always false in persisted
// snapshots.
type Website struct {
	ID            int64      `json:"id"`
	URL           string     `json:"url"`
	Name          string     `json:"name"`
	Status        *int       `json:"status"`
	Vitals        *WebVitals `json:"vitals"`
	LastChecked   *time.Time `json:"last_checked"`
	Screenshot    *string    `json:"screenshot"`
	IsCapturing   bool       `json:"is_capturing,omitempty"`
	Industry      string     `json:"industry"`
	ProjectStatus string     `json:"project_status,omitempty"`
	Favorite      bool       `json:"favorite"`
	IsWordPress   *bool      `json:"is_wordpress,omitempty"`
	Notes         *Notes     `json:"notes,omitempty"`
}

// Built-in industry classifications.
const (
	IndustryGeneral    = "general"
	IndustryEcommerce  = "ecommerce"
	IndustryFinance    = "finance"
	IndustryHealthcare = "healthcare"
	IndustryEducation  = "education"
	IndustryTechnology = "technology"
	IndustryMedia      = "media"
	IndustryTravel     = "travel"
	IndustryGovernment = "government"
	IndustryNonprofit  = "nonprofit"
)

// Industries lists the built-in industry values in display order.
func Industries() []string {
	return []string{
		IndustryGeneral,
		IndustryEcommerce,
		IndustryFinance,
		IndustryHealthcare,
		IndustryEducation,
		IndustryTechnology,
		IndustryMedia,
		IndustryTravel,
		IndustryGovernment,
		IndustryNonprofit,
	}
}

// Clone returns a deep copy of the website.
func (w Website) Clone() Website {
	out := w
	if w.Status != nil {
		v := *w.Status
		out.Status = &v
	}
	if w.Vitals != nil {
		v := *w.Vitals
		out.Vitals = &v
	}
	if w.LastChecked != nil {
		v := *w.LastChecked
		out.LastChecked = &v
	}
	if w.Screenshot != nil {
		v := *w.Screenshot
		out.Screenshot = &v
	}
	if w.IsWordPress != nil {
		v := *w.IsWordPress
		out.IsWordPress = &v
	}
	if w.Notes != nil {
		n := w.Notes.Clone()
		out.Notes = &n
	}
	return out
}

// Online reports whether the last observed status was a 200.
func (w Website) Online() bool {
	return w.Status != nil && *w.Status == 200
}

// Notes is the nested free-form documentation attached to a website.
// It carries no behavior beyond lossless round-tripping.
type Notes struct {
	DNSHistory    []DNSRecord   `json:"dns_history"`
	ProjectAccess ProjectAccess `json:"project_access"`
	GeneralNotes  string        `json:"general_notes"`
	Security      SecurityNotes `json:"security"`
	Report        Report        `json:"report"`
	LastUpdated   time.Time     `json:"last_updated"`
}

// DNSRecord is one historical DNS observation.
type DNSRecord struct {
	RecordType string    `json:"record_type"`
	Value      string    `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
}

// Credential is a labeled access credential reference.
type Credential struct {
	Label    string `json:"label"`
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

// ProjectAccess records how the project behind a site is reached.
type ProjectAccess struct {
	Credentials         []Credential `json:"credentials"`
	AccessNotes         string       `json:"access_notes"`
	WarningAcknowledged bool         `json:"warning_acknowledged"`
}

// SecurityNotes collects manual security observations.
type SecurityNotes struct {
	Vulnerabilities []string `json:"vulnerabilities"`
	OpenPorts       []int    `json:"open_ports"`
	ExposedInfo     string   `json:"exposed_info"`
	ScanResults     string   `json:"scan_results"`
}

// Report is a generated per-site summary.
type Report struct {
	Summary         string    `json:"summary"`
	Performance     string    `json:"performance"`
	Security        string    `json:"security"`
	Recommendations string    `json:"recommendations"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Clone returns a deep copy of the notes.
func (n Notes) Clone() Notes {
	out := n
	if n.DNSHistory != nil {
		out.DNSHistory = append([]DNSRecord(nil), n.DNSHistory...)
	}
	if n.ProjectAccess.Credentials != nil {
		out.ProjectAccess.Credentials = append([]Credential(nil), n.ProjectAccess.Credentials...)
	}
	if n.Security.Vulnerabilities != nil {
		out.Security.Vulnerabilities = append([]string(nil), n.Security.Vulnerabilities...)
	}
	if n.Security.OpenPorts != nil {
		out.Security.OpenPorts = append([]int(nil), n.Security.OpenPorts...)
	}
	return out
}

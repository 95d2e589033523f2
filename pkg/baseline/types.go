package baseline

// FeatureRecord is a feature from the upstream dataset after normalization.
// It is immutable once built by the dataset adapter.
type FeatureRecord struct {
	ID          string
	Name        string
	Status      Status
	MDNURL      string
	Description string
	CompatKeys  []string

	// Dates the feature reached the Newly and Widely tiers, when known.
	LowDate  string
	HighDate string
}

// Entry is the projection of a FeatureRecord attached to every lookup key it
// resolves to. Many keys share one *Entry; nobody mutates it after the index
// is built.
type Entry struct {
	FeatureID   string `json:"featureId"`
	FeatureName string `json:"featureName"`
	Status      Status `json:"baseline"`
	MDNURL      string `json:"mdnUrl,omitempty"`
	Description string `json:"description,omitempty"`
	LowDate     string `json:"baselineLowDate,omitempty"`
	HighDate    string `json:"baselineHighDate,omitempty"`
}

// NewEntry projects a record into an index entry.
func NewEntry(r FeatureRecord) *Entry {
	name := r.Name
	if name == "" {
		name = r.ID
	}
	return &Entry{
		FeatureID:   r.ID,
		FeatureName: name,
		Status:      r.Status,
		MDNURL:      r.MDNURL,
		Description: r.Description,
		LowDate:     r.LowDate,
		HighDate:    r.HighDate,
	}
}

// Position is a zero-based location in a document. Char is a byte offset
// within the line.
type Position struct {
	Line int `json:"line" yaml:"line"`
	Char int `json:"character" yaml:"character"`
}

// Range is a half-open span [Start, End) in a document.
type Range struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

// Finding is a located construct whose feature is not widely available.
type Finding struct {
	Range  Range  `json:"range" yaml:"range"`
	Status Status `json:"status" yaml:"status"`
	Label  string `json:"label" yaml:"label"`
	Key    string `json:"key" yaml:"key"`
}

package models

// ArtifactKind identifies a diagnostic artifact captured for a failed scenario
type ArtifactKind string

const (
	ArtifactScreenshot ArtifactKind = "screenshot"
	ArtifactVideo      ArtifactKind = "video"
	ArtifactTrace      ArtifactKind = "trace"
)

const (
	MediaTypePNG  = "image/png"
	MediaTypeWebM = "video/webm"
	MediaTypeZip  = "application/zip"
	MediaTypeJSON = "application/json"
	MediaTypeText = "text/plain"
)

// Artifact is a piece of diagnostic evidence attached to a scenario's report record
type Artifact struct {
	Kind      ArtifactKind `json:"kind"`
	Name      string       `json:"name"`
	MediaType string       `json:"mediaType"`
	Body      []byte       `json:"-"`
	Path      string       `json:"path,omitempty"` // on-disk copy, if any
}

// Extension returns the file extension matching the artifact's media type
func (a Artifact) Extension() string {
	return ExtensionFor(a.MediaType)
}

// ExtensionFor maps a media type to a file extension, without the dot
func ExtensionFor(mediaType string) string {
	switch mediaType {
	case MediaTypePNG:
		return "png"
	case MediaTypeWebM:
		return "webm"
	case MediaTypeZip:
		return "zip"
	case MediaTypeJSON:
		return "json"
	default:
		return "txt"
	}
}

// Result is an Allure result file (<uuid>-result.json)
type Result struct {
	UUID          string         `json:"uuid"`
	HistoryID     string         `json:"historyId"`
	TestCaseID    string         `json:"testCaseId,omitempty"`
	Name          string         `json:"name"`
	FullName      string         `json:"fullName"`
	Status        ScenarioStatus `json:"status"`
	StatusDetails *StatusDetails `json:"statusDetails,omitempty"`
	Stage         string         `json:"stage"`
	Start         int64          `json:"start"`
	Stop          int64          `json:"stop"`
	Labels        []Label        `json:"labels"`
	Links         []Link         `json:"links,omitempty"`
	Attachments   []Attachment   `json:"attachments"`
}

// StageFinished is the only stage written by the harness.
const StageFinished = "finished"

// StatusDetails carries the failure message shown by the renderer
type StatusDetails struct {
	Message string `json:"message,omitempty"`
	Trace   string `json:"trace,omitempty"`
}

type Label struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Link points a result at an external tracker, e.g. a jira issue
type Link struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

type Attachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

package api

// MergeResponse is returned by both merge endpoints on success.
type MergeResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	VideoDuration  string `json:"video_duration"`
	AudioDuration  string `json:"audio_duration"`
	OutputDuration string `json:"output_duration"`
	DownloadURL    string `json:"download_url"`
}

// MergeURLRequest is the body of POST /merge-url.
type MergeURLRequest struct {
	VideoURL     string `json:"video_url"`
	AudioURL     string `json:"audio_url"`
	OutputFormat string `json:"output_format"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Kind   string `json:"kind,omitempty"`
}

// TestFilesResponse lists the sample media directory.
type TestFilesResponse struct {
	VideoFiles []string `json:"video_files"`
	AudioFiles []string `json:"audio_files"`
}

// CleanupResponse reports a retention sweep.
type CleanupResponse struct {
	DeletedFiles int  `json:"deleted_files"`
	Skipped      bool `json:"skipped,omitempty"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status string `json:"status"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Version     string `json:"version,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// CheckResult mirrors one preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// StatusResponse aggregates readiness information.
type StatusResponse struct {
	Ready                 bool               `json:"ready"`
	Dependencies          []DependencyStatus `json:"dependencies"`
	Checks                []CheckResult      `json:"checks"`
	OutputDir             string             `json:"output_dir"`
	RetentionMinutes      int                `json:"retention_minutes"`
	SweepIntervalMinutes  int                `json:"sweep_interval_minutes"`
	AuthenticationEnabled bool               `json:"authentication_enabled"`
}

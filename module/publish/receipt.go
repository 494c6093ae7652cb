package publish

import (
	"encoding/json"
	"time"

	"github.com/octandevelopment/mvnpub/util/common"
)

// UploadedFile is one file stored on the target.
type UploadedFile struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	SHA1 string `json:"sha1"`
}

// Receipt records a finished run.
type Receipt struct {
	RunID       string         `json:"runId"`
	Coordinates Coordinates    `json:"coordinates"`
	Repository  string         `json:"repository"`
	URL         string         `json:"url"`
	KeyID       string         `json:"keyId"`
	Fingerprint string         `json:"fingerprint"`
	Files       []UploadedFile `json:"files"`
	StartedAt   time.Time      `json:"startedAt"`
	Duration    time.Duration  `json:"-"`
	DryRun      bool           `json:"dryRun"`
}

// TotalSize is the sum of all file sizes.
func (r *Receipt) TotalSize() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Size
	}
	return total
}

func (r *Receipt) MarshalJSON() ([]byte, error) {
	type plain Receipt
	return json.Marshal(struct {
		*plain
		Duration string `json:"duration"`
	}{
		plain:    (*plain)(r),
		Duration: common.GetDuration(r.Duration),
	})
}

package azure

import (
	"context"
	"os"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/ocr"
)

var _ ocr.Analyzer = ReplayAnalyzer{}

// ReplayAnalyzer returns a previously saved analyze result instead of calling
// the service. The file argument is ignored.
type ReplayAnalyzer struct {
	Path string
}

func (r ReplayAnalyzer) Analyze(ctx context.Context, _ ocr.File) (*ocr.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.NewAnalysisError("replay analyze result", err)
	}
	f, err := os.Open(r.Path)
	if err != nil {
		return nil, common.NewAnalysisError("open saved analyze result", err)
	}
	defer f.Close()

	doc, err := DecodeResult(f)
	if err != nil {
		return nil, common.NewAnalysisError("load saved analyze result", err)
	}
	return doc, nil
}

// SaveResult writes raw analyze JSON to path; used with WithResultSink.
func SaveResult(path string, raw []byte) error {
	return os.WriteFile(path, raw, 0o644)
}

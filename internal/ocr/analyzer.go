package ocr

import "context"

// File is a document handed to an Analyzer.
type File struct {
	Name        string // base name, used for logs and content-type sniffing
	ContentType string
	Content     []byte
}

// Analyzer is the layout-analysis collaborator. Implementations return an
// *common.AppError with code ANALYSIS_ERROR on failure.
type Analyzer interface {
	Analyze(ctx context.Context, f File) (*Document, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, f File) (*Document, error)

func (fn AnalyzerFunc) Analyze(ctx context.Context, f File) (*Document, error) {
	return fn(ctx, f)
}

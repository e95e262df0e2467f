package report

import "context"

// Writer drafts report markdown, typically with an LLM.
type Writer interface {
	WriteReport(ctx context.Context, req Request, facts Assessment) (string, error)
}

type Store interface {
	// Put uploads body under key and returns its URL.
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type Repository interface {
	Save(ctx context.Context, r *Report) error
}

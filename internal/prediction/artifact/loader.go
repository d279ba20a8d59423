package artifact

import (
	"context"
	"fmt"

	"github.com/yungbote/attrition-backend/internal/platform/logger"
)

type Loader struct {
	log    *logger.Logger
	opener Opener
}

func NewLoader(log *logger.Logger, opener Opener) *Loader {
	if opener == nil {
		opener = SourceOpener{}
	}
	return &Loader{log: log.With("component", "ArtifactLoader"), opener: opener}
}

// Load reads, decodes and validates the artifact at source. It never fails:
// any problem is logged and yields a degraded handle so intake keeps working
// on fallback scores.
func (l *Loader) Load(ctx context.Context, source string) *Handle {
	h, err := l.load(ctx, source)
	if err != nil {
		l.log.Error("artifact load failed, scoring will use fallback", "source", source, "error", err)
		return Degraded(source, err)
	}
	info := h.Info()
	l.log.Info("artifact loaded",
		"source", source,
		"version", info.Version,
		"model_kind", info.ModelKind,
		"checksum", info.Checksum,
		"columns", len(info.Columns),
	)
	return h
}

func (l *Loader) load(ctx context.Context, source string) (*Handle, error) {
	rc, err := l.opener.Open(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer rc.Close()

	b, checksum, err := Decode(rc)
	if err != nil {
		return nil, err
	}
	return NewHandle(b, source, checksum)
}

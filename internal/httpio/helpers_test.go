package httpio

import (
	"github.com/vyrodovalexey/embhttp/internal/observability"
)

func newTestLogger() observability.Logger {
	return observability.NewNopLogger()
}

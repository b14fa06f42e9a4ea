package observe

import "errors"

var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: sample percentage must be between 0.0 and 1.0")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")
	ErrNilObserver            = errors.New("observe: observer is nil")
)

// oneOf is the set of accepted values of a Config field. The empty string
// is always accepted and selects the default.
type oneOf map[string]struct{}

func newOneOf(values ...string) oneOf {
	set := oneOf{"": {}}
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func (s oneOf) has(v string) bool {
	_, ok := s[v]
	return ok
}

var (
	tracingExporters = newOneOf("otlp", "jaeger", "stdout", "none")
	metricsExporters = newOneOf("otlp", "prometheus", "stdout", "none")
	logLevels        = newOneOf("debug", "info", "warn", "error")
)

// RedactedFields are log field keys whose values are replaced before
// writing. Attachment payloads and converted content are among them.
var RedactedFields = []string{
	"payload",
	"content",
	"input",
	"password",
	"secret",
	"token",
	"api_key",
	"apiKey",
	"jwt_secret",
	"credential",
	"authorization",
}

package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldCategory   = "category"
	FieldSaleID     = "sale_id"
	FieldProduct    = "product"
	FieldAmount     = "amount"
	FieldSeriesLen  = "series_len"
	FieldAnomalies  = "anomalies"
	FieldThreshold  = "threshold"
	FieldBackend    = "backend"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentAnomaly   = "anomaly"
	ComponentSales     = "sales"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentReports   = "reports"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpDelete    = "delete"
	OpList      = "list"
	OpDetect    = "detect"
	OpSummarize = "summarize"
	OpSync      = "sync"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation  = "validation_error"
	ErrorTypeUpstream    = "upstream_error"
	ErrorTypeNotFound    = "not_found_error"
	ErrorTypeUnsupported = "unsupported_error"
	ErrorTypeInternal    = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds the error message; a nil error adds nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithQuery adds the ledger slice a series was built from.
func (f LogFields) WithQuery(year int, category string) LogFields {
	f[FieldYear] = year
	if category != "" {
		f[FieldCategory] = category
	}
	return f
}

// WithDetection adds the outcome of one detector run.
func (f LogFields) WithDetection(seriesLen, anomalies int, threshold float64) LogFields {
	f[FieldSeriesLen] = seriesLen
	f[FieldAnomalies] = anomalies
	f[FieldThreshold] = threshold
	return f
}

// WithSale adds the identifying fields of a ledger record.
func (f LogFields) WithSale(id int64, year, month int, product, category string, amount float64) LogFields {
	f[FieldSaleID] = id
	f[FieldYear] = year
	f[FieldMonth] = month
	f[FieldProduct] = product
	f[FieldCategory] = category
	f[FieldAmount] = amount
	return f
}

// ToSlice converts LogFields to key/value pairs for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}

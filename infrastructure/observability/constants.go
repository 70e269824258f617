package observability

// Metric name prefixes
const (
	MetricPrefix = "settlement_engine"
)

// Metric names
const (
	// Settlement metrics
	SettlementsTotal = MetricPrefix + ".settlements.total"
	WagersPending    = MetricPrefix + ".wagers.pending"

	// Cashout metrics
	CashoutOffersTotal  = MetricPrefix + ".cashout.offers_total"
	CashoutAcceptsTotal = MetricPrefix + ".cashout.accepts_total"

	// Ledger metrics
	LedgerAppendsTotal = MetricPrefix + ".ledger.appends_total"

	// Notarization metrics
	NotarizationFailuresTotal = MetricPrefix + ".notarization.failures_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// Database metrics
	DatabaseQueriesTotal  = MetricPrefix + ".database.queries_total"
	DatabaseQueryDuration = MetricPrefix + ".database.query_duration"
)

// Label keys
const (
	LabelType      = "type"
	LabelResult    = "result"
	LabelEventType = "event_type"

	LabelRepository = "repository"
	LabelMethod     = "method"
)

package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricPurchaseStepViewed = "PurchaseStepViewed"
	MetricPurchaseError      = "PurchaseError"
	MetricPurchaseCompleted  = "PurchaseCompleted"
	MetricAPILatency         = "APILatency"
	MetricAPIRequests        = "APIRequests"

	// Dimension Keys
	DimStep     = "Step"
	DimKind     = "Kind"
	DimVariant  = "Variant"
	DimEndpoint = "Endpoint"
	DimMethod   = "Method"
	DimStatus   = "Status"

	// Metric Namespace
	MetricNamespace = "SpacePurchase"
)

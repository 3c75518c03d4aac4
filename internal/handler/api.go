// Package handler provides the HTTP surface of the engine: the generate
// endpoint with failover, provider and key management, and state
// import/export.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quillforge/aiengine/internal/domain"
	"github.com/quillforge/aiengine/internal/orchestrator"
	"github.com/quillforge/aiengine/internal/registry"
	"github.com/quillforge/aiengine/internal/usage"
)

// API bundles the handlers for every /v1 route.
type API struct {
	engine   *orchestrator.Engine
	registry *registry.Registry
	tracker  *usage.Tracker
	logger   *slog.Logger
}

// APIOption is a functional option for configuring API.
type APIOption func(*API)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) APIOption {
	return func(a *API) {
		a.logger = logger
	}
}

// WithUsageTracker attaches a usage tracker that accumulates token counts
// per provider.
func WithUsageTracker(t *usage.Tracker) APIOption {
	return func(a *API) {
		a.tracker = t
	}
}

// NewAPI creates the handler set over an engine and its registry.
func NewAPI(engine *orchestrator.Engine, reg *registry.Registry, opts ...APIOption) *API {
	a := &API{
		engine:   engine,
		registry: reg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.tracker == nil {
		a.tracker = usage.NewTracker()
	}
	return a
}

// Register attaches all routes to the router group.
func (a *API) Register(r gin.IRouter) {
	v1 := r.Group("/v1")
	{
		v1.POST("/generate", a.HandleGenerate)
		v1.GET("/providers", a.HandleListProviders)
		v1.GET("/providers/:provider", a.HandleGetProvider)
		v1.PUT("/providers/:provider/enabled", a.HandleSetEnabled)
		v1.PUT("/providers/:provider/model", a.HandleSelectModel)
		v1.POST("/providers/:provider/keys", a.HandleAddKey)
		v1.POST("/providers/:provider/keys/test", a.HandleTestKey)
		v1.POST("/providers/:provider/keys/enable", a.HandleEnableKey)
		v1.DELETE("/providers/:provider/keys", a.HandleRemoveKey)
		// Lives outside /providers because a static "order" segment would
		// collide with the :provider wildcard in gin's router.
		v1.PUT("/order", a.HandleSetOrder)
		v1.GET("/state", a.HandleExportState)
		v1.PUT("/state", a.HandleImportState)
		v1.GET("/usage", a.HandleUsage)
	}
}

// HandleGenerate handles POST /v1/generate.
// A provider success returns 200. Exhaustion of every provider is still a
// well-formed result body, returned with 503 so clients and load
// balancers can react.
func (a *API) HandleGenerate(c *gin.Context) {
	var req orchestrator.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		a.sendError(c, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return
	}

	if req.PreferredProvider != "" && !req.PreferredProvider.Known() {
		a.sendError(c, http.StatusBadRequest, "invalid_request", "unknown provider: "+string(req.PreferredProvider))
		return
	}

	result, err := a.engine.Generate(c.Request.Context(), req)
	if err != nil {
		a.sendError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	// For the logging middleware.
	c.Set("provider", string(result.Provider))
	c.Set("attempts", len(result.Attempts))

	if !result.Success {
		c.JSON(http.StatusServiceUnavailable, result)
		return
	}

	a.tracker.Record(result.Provider, result.Model, result.Usage)
	c.JSON(http.StatusOK, result)
}

// providerView is ProviderStatus plus masked key details for operators.
type providerView struct {
	registry.ProviderStatus
	MaskedKeys []keyView `json:"keys"`
}

// keyView is one key with its secret masked.
type keyView struct {
	Key          string `json:"key"`
	Label        string `json:"label,omitempty"`
	UsageCount   int64  `json:"usage_count"`
	FailureCount int    `json:"failure_count"`
	Disabled     bool   `json:"disabled"`
	Validated    bool   `json:"validated"`
}

func viewOf(status registry.ProviderStatus) providerView {
	keys := make([]keyView, len(status.Keys))
	for i, k := range status.Keys {
		keys[i] = keyView{
			Key:          domain.MaskSecret(k.Secret),
			Label:        k.Label,
			UsageCount:   k.UsageCount,
			FailureCount: k.FailureCount,
			Disabled:     k.Disabled,
			Validated:    k.Validated,
		}
	}
	return providerView{ProviderStatus: status, MaskedKeys: keys}
}

// HandleListProviders handles GET /v1/providers.
func (a *API) HandleListProviders(c *gin.Context) {
	statuses := a.registry.Statuses()
	views := make([]providerView, len(statuses))
	for i, s := range statuses {
		views[i] = viewOf(s)
	}
	c.JSON(http.StatusOK, gin.H{
		"order":     a.registry.Order(),
		"providers": views,
	})
}

// HandleGetProvider handles GET /v1/providers/:provider.
func (a *API) HandleGetProvider(c *gin.Context) {
	provider := domain.ProviderID(c.Param("provider"))
	status, ok := a.registry.Status(provider)
	if !ok {
		a.sendError(c, http.StatusNotFound, "unknown_provider", "unknown provider: "+string(provider))
		return
	}
	c.JSON(http.StatusOK, viewOf(status))
}

// HandleSetEnabled handles PUT /v1/providers/:provider/enabled.
func (a *API) HandleSetEnabled(c *gin.Context) {
	provider := domain.ProviderID(c.Param("provider"))

	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		a.sendError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if !provider.Known() {
		a.sendError(c, http.StatusNotFound, "unknown_provider", "unknown provider: "+string(provider))
		return
	}

	if !a.registry.SetEnabled(provider, body.Enabled) {
		a.sendError(c, http.StatusConflict, "precondition_failed",
			"provider needs a validated key and a selected model before it can be enabled")
		return
	}

	status, _ := a.registry.Status(provider)
	c.JSON(http.StatusOK, viewOf(status))
}

// HandleSelectModel handles PUT /v1/providers/:provider/model.
func (a *API) HandleSelectModel(c *gin.Context) {
	provider := domain.ProviderID(c.Param("provider"))

	var body struct {
		Model string `json:"model" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		a.sendError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if !provider.Known() {
		a.sendError(c, http.StatusNotFound, "unknown_provider", "unknown provider: "+string(provider))
		return
	}

	if !a.registry.SelectModel(provider, body.Model) {
		a.sendError(c, http.StatusConflict, "unknown_model",
			"model is not among the provider's discovered models")
		return
	}

	status, _ := a.registry.Status(provider)
	c.JSON(http.StatusOK, viewOf(status))
}

// HandleAddKey handles POST /v1/providers/:provider/keys.
func (a *API) HandleAddKey(c *gin.Context) {
	provider := domain.ProviderID(c.Param("provider"))

	var body struct {
		Key   string `json:"key" binding:"required"`
		Label string `json:"label"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		a.sendError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if !provider.Known() {
		a.sendError(c, http.StatusNotFound, "unknown_provider", "unknown provider: "+string(provider))
		return
	}

	added := a.registry.SetKey(provider, body.Key, body.Label)
	status, _ := a.registry.Status(provider)
	c.JSON(http.StatusOK, gin.H{
		"added":    added,
		"provider": viewOf(status),
	})
}

// HandleTestKey handles POST /v1/providers/:provider/keys/test.
// The key is stored if new, probed against the vendor, and the provider
// state updated from the outcome.
func (a *API) HandleTestKey(c *gin.Context) {
	provider := domain.ProviderID(c.Param("provider"))

	var body struct {
		Key string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		a.sendError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if !provider.Known() {
		a.sendError(c, http.StatusNotFound, "unknown_provider", "unknown provider: "+string(provider))
		return
	}

	result := a.registry.TestKey(c.Request.Context(), provider, body.Key)
	c.JSON(http.StatusOK, result)
}

// HandleEnableKey handles POST /v1/providers/:provider/keys/enable.
// This is the operator override that returns a disabled key to rotation.
func (a *API) HandleEnableKey(c *gin.Context) {
	provider := domain.ProviderID(c.Param("provider"))

	var body struct {
		Key string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		a.sendError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if !provider.Known() {
		a.sendError(c, http.StatusNotFound, "unknown_provider", "unknown provider: "+string(provider))
		return
	}

	a.registry.EnableKey(provider, body.Key)
	status, _ := a.registry.Status(provider)
	c.JSON(http.StatusOK, viewOf(status))
}

// HandleRemoveKey handles DELETE /v1/providers/:provider/keys.
func (a *API) HandleRemoveKey(c *gin.Context) {
	provider := domain.ProviderID(c.Param("provider"))

	var body struct {
		Key string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		a.sendError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if !provider.Known() {
		a.sendError(c, http.StatusNotFound, "unknown_provider", "unknown provider: "+string(provider))
		return
	}

	a.registry.RemoveKey(provider, body.Key)
	status, _ := a.registry.Status(provider)
	c.JSON(http.StatusOK, viewOf(status))
}

// HandleSetOrder handles PUT /v1/providers/order.
func (a *API) HandleSetOrder(c *gin.Context) {
	var body struct {
		Order []domain.ProviderID `json:"order" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		a.sendError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	a.registry.SetOrder(body.Order)
	c.JSON(http.StatusOK, gin.H{"order": a.registry.Order()})
}

// HandleExportState handles GET /v1/state.
// The blob contains raw secrets; it is meant for backup and migration,
// not for display.
func (a *API) HandleExportState(c *gin.Context) {
	c.JSON(http.StatusOK, a.registry.Export())
}

// HandleImportState handles PUT /v1/state.
func (a *API) HandleImportState(c *gin.Context) {
	var state registry.State
	if err := c.ShouldBindJSON(&state); err != nil {
		a.sendError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	a.registry.Import(state)
	c.JSON(http.StatusOK, gin.H{"order": a.registry.Order()})
}

// HandleUsage handles GET /v1/usage.
func (a *API) HandleUsage(c *gin.Context) {
	c.JSON(http.StatusOK, a.tracker.Report())
}

// HandleHealth handles GET /health.
func (a *API) HandleHealth(c *gin.Context) {
	enabled := a.registry.EnabledProviders()

	totalActive := 0
	for _, s := range enabled {
		totalActive += s.ActiveKeys
	}

	status := "healthy"
	if len(enabled) == 0 || totalActive == 0 {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            status,
		"enabled_providers": len(enabled),
		"active_keys":       totalActive,
	})
}

// sendError sends a structured error response.
func (a *API) sendError(c *gin.Context, status int, errType, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"message": message,
			"type":    errType,
		},
	})
}

package goShield

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		TokenTTL:            e.config.Tokens.TTL,
		MaxTokensPerSession: e.config.Tokens.MaxPerSession,
		SingleUse:           e.config.Tokens.SingleUse,
		IssuancePolicy:      e.config.Tokens.IssuancePolicy,
		ChannelBindingOn:    e.config.Channel.Enabled,
		LockThreshold:       e.config.Attempts.MaxFailures,
		LockWindow:          e.config.Attempts.Window,
		GlobalRateLimit:     e.config.Rate.GlobalLimit,
		GlobalRateWindow:    e.config.Rate.GlobalWindow,
		RouteOverrides:      len(e.config.Rate.Routes),
		AuditEnabled:        e.config.Audit.Enabled,
		MetricsEnabled:      e.config.Metrics.Enabled,
	}
}

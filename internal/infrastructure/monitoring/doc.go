/*
Package monitoring provides Prometheus metrics for the UI builder service.

# Overview

Collectors cover HTTP traffic, generations (by payload source and outcome),
normalizer failures by kind and stage, repair steps, LLM endpoint calls,
preview compositions, contained script errors, caches and WebSocket
streams. A ring buffer of recent generation durations feeds the JSON
dashboard with gonum quantiles.

# Usage

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	router.Use(monitoring.Middleware(metrics))

	metrics.RecordGeneration("model", "ok", elapsed)
	metrics.RecordNormalization("MalformedJson", "structural")

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring

// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/fairagent/FairAgentLocal/services/llm"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/evidence"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/observability"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/routes"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/services"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/validation"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "fairagent-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("orchestrator-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// newCuratedStore picks the curated evidence backend.
//
// When WEAVIATE_SERVICE_URL points at a reachable-looking Weaviate
// instance, the vector store is used. Otherwise the service falls back
// to the YAML corpus at CURATED_EVIDENCE_PATH, and with neither set it
// runs without curated evidence at all.
func newCuratedStore() evidence.CuratedStore {
	weaviateURL := os.Getenv("WEAVIATE_SERVICE_URL")
	// Sanitize: Trim quotes and whitespace just in case Podman passes them literally
	weaviateURL = strings.Trim(weaviateURL, "\"' ")

	if weaviateURL != "" && strings.Contains(weaviateURL, "http") {
		parsedURL, err := url.Parse(weaviateURL)
		if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
			slog.Warn("WEAVIATE_SERVICE_URL is invalid. Running in lightweight mode.",
				"url", weaviateURL, "error", err)
		} else {
			clientConf := weaviate.Config{
				Host:   parsedURL.Host,
				Scheme: parsedURL.Scheme,
			}
			weaviateClient, err := weaviate.NewClient(clientConf)
			if err != nil {
				slog.Error("Failed to create Weaviate client", "error", err)
			} else {
				store, err := evidence.NewWeaviateStore(weaviateClient)
				if err != nil {
					slog.Error("Failed to create Weaviate evidence store", "error", err)
				} else {
					if err := store.VerifySchema(context.Background()); err != nil {
						slog.Warn("Weaviate schema check failed, curated searches may miss",
							"class", evidence.CuratedEvidenceClassName, "error", err)
					}
					slog.Info("Using Weaviate curated evidence store", "host", parsedURL.Host)
					return store
				}
			}
		}
	} else {
		slog.Info("WEAVIATE_SERVICE_URL not set or empty. Running in lightweight mode.")
	}

	corpusPath := os.Getenv("CURATED_EVIDENCE_PATH")
	if corpusPath == "" {
		slog.Warn("CURATED_EVIDENCE_PATH not set, running without curated evidence")
		return nil
	}
	store, err := evidence.NewFileStore(corpusPath)
	if err != nil {
		slog.Error("Failed to load the curated evidence corpus", "path", corpusPath, "error", err)
		return nil
	}
	slog.Info("Using file-backed curated evidence store", "path", corpusPath)
	return store
}

func main() {
	port := os.Getenv("ORCHESTRATOR_PORT")
	if port == "" {
		port = "12310"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	log.Println("Configuring the LLM Client")
	llmBackendType := os.Getenv("LLM_BACKEND_TYPE")

	var llmClient llm.LLMClient
	switch llmBackendType {
	case "openai":
		llmClient, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI LLM backend")
	case "local":
		llmClient, err = llm.NewLocalClient()
		slog.Info("Using local OpenAI-compatible LLM backend")
	default:
		slog.Warn("LLM_BACKEND_TYPE not set or invalid, defaulting to local")
		llmClient, err = llm.NewLocalClient()
	}
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	curatedStore := newCuratedStore()
	liveProvider := evidence.NewGoogleSearchProvider()

	var live evidence.LiveProvider
	if liveProvider.Configured() {
		live = liveProvider
	} else {
		slog.Info("Live web search not configured, answering from curated evidence only")
	}

	aggregator := evidence.NewAggregator(curatedStore, live)
	queryService := services.NewDomainAgentService(llmClient, aggregator, validation.NewValidator())

	router := gin.Default()
	router.Use(otelgin.Middleware("orchestrator-service"))

	routes.SetupRoutes(router, queryService)

	log.Println("Starting the orchestrator server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/opsec-labs/aa-validation-simulator/internal/config"
	"github.com/opsec-labs/aa-validation-simulator/internal/logger"
	"github.com/opsec-labs/aa-validation-simulator/internal/o11y"
	"github.com/opsec-labs/aa-validation-simulator/pkg/entrypoint"
	"github.com/opsec-labs/aa-validation-simulator/pkg/simulation"
)

func newServeCmd() *cobra.Command {
	var port int
	var otelServiceName, otelCollectorURL string
	var otelInsecure bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve simulate_validation/simulate_handle_op over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if o11y.IsEnabled(otelServiceName) {
				opts := &o11y.Opts{ServiceName: otelServiceName, CollectorURL: otelCollectorURL, InsecureMode: otelInsecure}
				defer o11y.InitTracer(opts)()
				defer o11y.InitMetrics(opts)()
			}

			deps, err := buildDependencies()
			if err != nil {
				return err
			}

			conf := config.GetValues()
			bindings := entrypoint.NewBindings(deps.RPC)
			supported := make(map[common.Address]bool, len(conf.SupportedEntryPoints))
			for _, addr := range conf.SupportedEntryPoints {
				supported[addr] = true
				bindings.Get(addr)
			}

			gin.SetMode(conf.GinMode)
			r := gin.New()
			if err := r.SetTrustedProxies(nil); err != nil {
				return err
			}
			if o11y.IsEnabled(otelServiceName) {
				r.Use(otelgin.Middleware(otelServiceName))
			}
			r.Use(cors.Default(), logger.WithLogr(log), gin.Recovery())

			r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
			r.POST("/simulate_validation", handleSimulateValidation(deps, bindings, supported))
			r.POST("/simulate_handle_op", handleSimulateHandleOp(deps, bindings, supported))

			return r.Run(":" + strconv.Itoa(port))
		},
	}
	cmd.Flags().IntVar(&port, "port", 4337, "HTTP port to listen on")
	cmd.Flags().StringVar(&otelServiceName, "otel-service-name", "", "OpenTelemetry service name (o11y disabled if empty)")
	cmd.Flags().StringVar(&otelCollectorURL, "otel-collector-url", "", "OTLP gRPC collector URL")
	cmd.Flags().BoolVar(&otelInsecure, "otel-insecure", false, "use an insecure OTLP connection")
	return cmd
}

type simulateValidationRequest struct {
	EntryPoint string     `json:"entryPoint"`
	Op         userOpWire `json:"op"`
}

func handleSimulateValidation(deps simulation.Dependencies, bindings *entrypoint.Bindings, supported map[common.Address]bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req simulateValidationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opJSON, _ := json.Marshal(req.Op)
		var parsed any
		_ = json.Unmarshal(opJSON, &parsed)
		if err := validateUserOpWire(parsed); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		op, err := toUserOperation(req.Op)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		binding := bindings.Get(common.HexToAddress(req.EntryPoint))
		if !supported[binding.Address] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported entry point: " + binding.Address.Hex()})
			return
		}

		success, simErr := simulation.SimulateValidation(c.Request.Context(), deps, simulation.ValidateRequest{
			EntryPoint: binding.Address,
			Op:         op,
		})
		if simErr != nil {
			if simErr.Other != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": simErr.Other.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"summary": simErr.Summary(), "violations": violationMessages(simErr)})
			return
		}
		c.JSON(http.StatusOK, simulationSuccessWire(success))
	}
}

type simulateHandleOpRequest struct {
	EntryPoint  string     `json:"entryPoint"`
	Beneficiary string     `json:"beneficiary"`
	Op          userOpWire `json:"op"`
}

func handleSimulateHandleOp(deps simulation.Dependencies, bindings *entrypoint.Bindings, supported map[common.Address]bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req simulateHandleOpRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		op, err := toUserOperation(req.Op)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		binding := bindings.Get(common.HexToAddress(req.EntryPoint))
		if !supported[binding.Address] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported entry point: " + binding.Address.Hex()})
			return
		}

		success, gasErr := simulation.SimulateHandleOp(c.Request.Context(), deps, simulation.HandleOpRequest{
			EntryPoint:  binding.Address,
			Op:          op,
			Beneficiary: common.HexToAddress(req.Beneficiary),
		})
		if gasErr != nil {
			if gasErr.Other != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": gasErr.Other.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"error": gasErr.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"callGas": success.CallGas, "verificationGas": success.VerificationGas})
	}
}

func violationMessages(simErr *simulation.SimulationError) []string {
	out := make([]string, len(simErr.Violations))
	for i, v := range simErr.Violations {
		out[i] = v.Error()
	}
	return out
}


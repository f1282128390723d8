// Package config loads the simulator's runtime configuration from a .env
// file and environment variables, the same viper-based convention the
// reference bundler uses for its own Values loader.
package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/opsec-labs/aa-validation-simulator/pkg/simulation"
)

// Values is the simulator's entire configuration surface.
type Values struct {
	// Documented variables.
	EthClientURL         string            `validate:"required,url"`
	Port                 int               `validate:"gt=0,lte=65535"`
	SupportedEntryPoints []common.Address  `validate:"gt=0"`
	CollectorTracerName  string            `validate:"required"`
	MinUnstakeDelay      uint32
	MinStakeValue        *big.Int          `validate:"required"`

	// Observability variables.
	OTELServiceName  string
	OTELCollectorURL string
	OTELInsecureMode bool

	// Undocumented variables.
	DebugMode bool
	GinMode   string `validate:"oneof=debug release test"`
}

var settingsValidator = validator.New()

func envArrayToAddressSlice(s string) []common.Address {
	slc := []common.Address{}
	for _, ep := range strings.Split(s, ",") {
		ep = strings.TrimSpace(ep)
		if ep == "" {
			continue
		}
		slc = append(slc, common.HexToAddress(ep))
	}
	return slc
}

func variableNotSetOrIsNil(env string) bool {
	return !viper.IsSet(env) || viper.GetString(env) == ""
}

// GetValues returns the simulator's config as read in from env vars.
func GetValues() *Values {
	viper.SetDefault("aa_sim_port", 4337)
	viper.SetDefault("aa_sim_collector_tracer_name", "bundlerCollectorTracer")
	viper.SetDefault("aa_sim_min_unstake_delay", 84_600)
	viper.SetDefault("aa_sim_min_stake_value", "1000000000000000000")
	viper.SetDefault("aa_sim_otel_insecure_mode", false)
	viper.SetDefault("aa_sim_debug_mode", false)
	viper.SetDefault("aa_sim_gin_mode", gin.ReleaseMode)

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	_ = viper.BindEnv("aa_sim_eth_client_url")
	_ = viper.BindEnv("aa_sim_port")
	_ = viper.BindEnv("aa_sim_supported_entry_points")
	_ = viper.BindEnv("aa_sim_collector_tracer_name")
	_ = viper.BindEnv("aa_sim_min_unstake_delay")
	_ = viper.BindEnv("aa_sim_min_stake_value")
	_ = viper.BindEnv("aa_sim_otel_service_name")
	_ = viper.BindEnv("aa_sim_otel_collector_url")
	_ = viper.BindEnv("aa_sim_otel_insecure_mode")
	_ = viper.BindEnv("aa_sim_debug_mode")
	_ = viper.BindEnv("aa_sim_gin_mode")

	if variableNotSetOrIsNil("aa_sim_eth_client_url") {
		panic("Fatal config error: aa_sim_eth_client_url not set")
	}
	if variableNotSetOrIsNil("aa_sim_supported_entry_points") {
		panic("Fatal config error: aa_sim_supported_entry_points not set")
	}
	if viper.IsSet("aa_sim_otel_service_name") && variableNotSetOrIsNil("aa_sim_otel_collector_url") {
		panic("Fatal config error: aa_sim_otel_service_name is set without a collector URL")
	}

	minStakeValue, ok := new(big.Int).SetString(viper.GetString("aa_sim_min_stake_value"), 10)
	if !ok {
		panic(fmt.Errorf("fatal config error: aa_sim_min_stake_value is not a valid integer: %q", viper.GetString("aa_sim_min_stake_value")))
	}

	values := &Values{
		EthClientURL:         viper.GetString("aa_sim_eth_client_url"),
		Port:                 viper.GetInt("aa_sim_port"),
		SupportedEntryPoints: envArrayToAddressSlice(viper.GetString("aa_sim_supported_entry_points")),
		CollectorTracerName:  viper.GetString("aa_sim_collector_tracer_name"),
		MinUnstakeDelay:      viper.GetUint32("aa_sim_min_unstake_delay"),
		MinStakeValue:        minStakeValue,
		OTELServiceName:      viper.GetString("aa_sim_otel_service_name"),
		OTELCollectorURL:     viper.GetString("aa_sim_otel_collector_url"),
		OTELInsecureMode:     viper.GetBool("aa_sim_otel_insecure_mode"),
		DebugMode:            viper.GetBool("aa_sim_debug_mode"),
		GinMode:              viper.GetString("aa_sim_gin_mode"),
	}

	if err := settingsValidator.Struct(values); err != nil {
		panic(fmt.Errorf("fatal config error: %w", err))
	}
	return values
}

// SimulationSettings derives pkg/simulation's stake thresholds from Values.
func (v *Values) SimulationSettings() simulation.Settings {
	return simulation.Settings{
		MinUnstakeDelay: v.MinUnstakeDelay,
		MinStakeValue:   v.MinStakeValue,
	}
}

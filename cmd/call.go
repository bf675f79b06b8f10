package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hmctl/hmdispatch/config"
	"github.com/hmctl/hmdispatch/infra/logger"
	"github.com/hmctl/hmdispatch/infra/mqtt"
)

var callData string

var callCmd = &cobra.Command{
	Use:   "call <service>",
	Short: "Inject one service call over MQTT",
	Args:  cobra.ExactArgs(1),
	RunE:  injectCall,
}

func init() {
	callCmd.Flags().StringVarP(&callData, "data", "d", "{}", "call payload as JSON")
	rootCmd.AddCommand(callCmd)
}

func injectCall(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(callData), &data); err != nil {
		return fmt.Errorf("parse call data: %w", err)
	}

	logg := logger.New("call-command")
	mqttCfg := cfg.MQTT
	mqttCfg.ClientID = cfg.MQTT.ClientID + "-call"
	caller, err := mqtt.NewCaller(mqttCfg)
	if err != nil {
		return fmt.Errorf("mqtt caller: %w", err)
	}
	defer caller.Disconnect()

	id, err := caller.Call(args[0], data)
	if err != nil {
		return fmt.Errorf("publish call: %w", err)
	}
	logg.Infof("published call %s as %s", args[0], id)
	return nil
}

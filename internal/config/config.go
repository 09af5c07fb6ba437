package config

import "time"

type BridgeConfig struct {
	Addr           string
	TopSpeed       float64
	SteeringScale  float64
	ModelEndpoint  string
	ModelAPIURL    string
	ModelTimeout   time.Duration
	StatusInterval time.Duration
	RawLogEnabled  bool
	RawLogDir      string
	DecodeLogEvery int
	Debug          bool
	DebugRate      float64
}

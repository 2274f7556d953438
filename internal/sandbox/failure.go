package sandbox

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// FailConfig injects failures into a fraction of requests.
type FailConfig struct {
	Rate float64
	Code int
}

// ParseFailConfig parses "rate=0.2,code=503". An empty string disables
// injection; code defaults to 500.
func ParseFailConfig(raw string) (FailConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return FailConfig{}, nil
	}
	cfg := FailConfig{Code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		keyVal := strings.SplitN(part, "=", 2)
		if len(keyVal) != 2 {
			return FailConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		val := strings.TrimSpace(keyVal[1])
		switch strings.TrimSpace(keyVal[0]) {
		case "rate":
			rate, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return FailConfig{}, err
			}
			if rate < 0 || rate > 1 {
				return FailConfig{}, fmt.Errorf("fail rate %v out of [0,1]", rate)
			}
			cfg.Rate = rate
		case "code":
			code, err := strconv.Atoi(val)
			if err != nil {
				return FailConfig{}, err
			}
			if code < 400 || code > 599 {
				return FailConfig{}, fmt.Errorf("fail code %d is not an error status", code)
			}
			cfg.Code = code
		default:
			return FailConfig{}, fmt.Errorf("unknown fail key %q", keyVal[0])
		}
	}
	return cfg, nil
}

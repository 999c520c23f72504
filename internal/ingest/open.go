package ingest

import (
	"fmt"

	"github.com/anttok/recognitiond/internal/config"
)

// Open classifies uri and opens the matching ingestor with the contract
// appropriate to its source type (§4.A): local devices report dead on
// EOF; RTSP/HTTP/RTMP reconnect forever with backoff; files loop on EOF.
func Open(uri string, cfg config.IngestConfig) (Ingestor, error) {
	sourceType := Classify(uri)

	var policy reconnectPolicy
	switch sourceType {
	case SourceTypeDevice:
		policy = policyNone
	case SourceTypeFile:
		policy = policyLoopFile
	case SourceTypeRTSP, SourceTypeHTTP, SourceTypeRTMP:
		policy = policyReconnectNetwork
	default:
		return nil, fmt.Errorf("unrecognized source %q", uri)
	}

	return newCVIngestor(uri, sourceType, policy, cfg)
}

// Validate opens uri briefly and closes it without ever returning the
// ingestor to a caller, so it cannot mutate the active ingestor.
func Validate(uri string, cfg config.IngestConfig) error {
	ing, err := Open(uri, cfg)
	if err != nil {
		return err
	}
	return ing.Close()
}

// Command sipingest frames and parses SIP messages received over TCP or read from capture files.
//
// Usage:
//
//	sipingest serve --listen 0.0.0.0:5060 --metrics-listen :9090
//	sipingest parse --chunk-size 512 capture.sip
//	sipingest config -c sipingest.yaml
//
// Every option can be set in the YAML config file, with SIPINGEST_* environment variables
// (SIPINGEST_INGEST_MAX_MESSAGE_SIZE) or with inline YAML passed to --set.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"image-recognition-go/internal/bootstrap"
)

func main() {
	// stdout belongs to the MCP stdio transport.
	fmt.Fprintf(os.Stderr, "[%s] [INFO] [BOOT] starting image-recognition...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "image-recognition failed: %v\n", err)
		os.Exit(1)
	}
}

// Command clipflow is the CLI entry point for the media pipeline.
package main

// Package util holds small parsing helpers shared by the CLI and the API.
package util

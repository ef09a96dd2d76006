// Package diarization defines the speaker diarization backend interface.
// Every backend answers with RTTM text; the alignment package parses it.
//
// # Backends
//
//   - diarization/pyannote: pyannote.audio HTTP sidecar
//   - diarization/rttmfile: an existing .rttm file
package diarization

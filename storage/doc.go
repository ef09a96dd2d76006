// Package storage is where lifescribe keeps run artifacts: the raw ASR dump,
// the raw RTTM and the aligned result of each session. Backends register
// themselves by name; import storage/local or storage/s3 for the side effect
// and call New.
package storage

// Package alignment fuses ASR chunks with diarization intervals into
// speaker-attributed transcript segments.
//
// The flow is one-way: RTTM text is parsed into an IntervalStore, a Resolver
// answers "who is speaking during this span" against those intervals, and a
// Merger folds the resolved chunks into the minimal run of segments where
// adjacent segments always have different speakers.
//
//	store, err := alignment.ParseRTTM(rttmFile)
//	segments, err := alignment.Align(chunks, store.Intervals())
//
// Everything in this package is synchronous and free of I/O beyond the
// reader handed to ParseRTTM.
package alignment

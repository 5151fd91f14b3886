package model

// Package model defines the domain data structures shared across the app:
// download requests, quality and codec choices, orchestration states,
// progress events and terminal outcomes. Values are plain structs so they can
// cross goroutine boundaries by copy.

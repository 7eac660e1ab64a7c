package auth

var WithClock = withClock

package main

//go:generate swag init -g cmd/engine/main.go -o docs

// @title           Signal Engine API
// @version         0.1.0
// @description     Signal lifecycle tracking, risk thresholds, and trade history.
// @host            localhost:8080
// @BasePath        /
// @schemes         http

// Package service wires protocol transport to domain services.
//
// It runs MCP over stdio or HTTP and delegates tool meaning to the dice
// handlers in the domain package.
package service

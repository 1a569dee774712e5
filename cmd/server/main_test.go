package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurlHostForListenAddr(t *testing.T) {
	cases := []struct {
		name string
		addr string
		want string
	}{
		{"port only", ":8080", "localhost:8080"},
		{"explicit ipv4", "127.0.0.1:8080", "127.0.0.1:8080"},
		{"wildcard ipv4", "0.0.0.0:8080", "localhost:8080"},
		{"wildcard ipv6", "[::]:8080", "localhost:8080"},
		{"ipv6 loopback keeps brackets", "[::1]:8080", "[::1]:8080"},
		{"surrounding whitespace", " localhost:9090 ", "localhost:9090"},
		{"whitespace around bare port", "  :7070  ", "localhost:7070"},
		{"empty defaults", "", "localhost:8080"},
		{"blank defaults", "   ", "localhost:8080"},
		{"no port passes through", "localhost", "localhost"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, curlHostForListenAddr(tc.addr))
		})
	}
}

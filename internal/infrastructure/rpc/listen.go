package rpc

import (
	"errors"
	"fmt"
	"net"
)

// Listen binds a TCP listener for address. When the requested host cannot be
// bound it falls back, on the same port, to 0.0.0.0, 127.0.0.1 and [::] in that
// order, so a "[::]" default still works on hosts without IPv6.
// It returns the listener and the address that was actually bound.
func Listen(address string) (net.Listener, string, error) {
	_, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, "", fmt.Errorf("rpc: invalid listen address %q: %w", address, err)
	}

	var errs []error
	for _, candidate := range bindCandidates(address, port) {
		lis, err := net.Listen("tcp", candidate)
		if err == nil {
			return lis, candidate, nil
		}
		errs = append(errs, err)
	}
	return nil, "", fmt.Errorf("rpc: failed to bind %s: %w", address, errors.Join(errs...))
}

func bindCandidates(address, port string) []string {
	candidates := []string{
		address,
		net.JoinHostPort("0.0.0.0", port),
		net.JoinHostPort("127.0.0.1", port),
		net.JoinHostPort("::", port),
	}

	seen := make(map[string]struct{}, len(candidates))
	unique := candidates[:0]
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		unique = append(unique, c)
	}
	return unique
}

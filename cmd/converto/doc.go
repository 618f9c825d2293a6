// Command converto is the CLI for the converto transformation service.
//
// `converto serve` runs the HTTP daemon. `convert`, `compress`, and
// `remove-bg` run one batch in-process and export the results to a local
// directory, recording history exactly as the daemon does. `history`,
// `deps`, and `config` are inspection helpers.
package main

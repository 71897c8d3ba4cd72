// Command hazel is the CLI front end for the hazel authorization engine:
// entity registration, rule grant/deny/revoke/allow, child-edge
// maintenance, authorization checks, membership/rule listing,
// declaration reconciliation, and operational health checks.
package main

func main() {
	Execute()
}

// Package assistant wires the fleet-maintenance customer-service assistant:
// the specialized sub-agents, the parallel maintenance-report pipeline, the
// critique/refine appointment-scheduling pipeline, and the front-desk router
// that delegates requests to the right specialist.
package assistant

// Package monotime keeps a periodically refreshed sample of the operating
// system's monotonic clock. It is the only part of svcsync that reads the OS
// clock; everything else reads the published sample through Sampler.Load.
package monotime

package config

import "errors"

var ErrConfigIsNil = errors.New("config is nil")
var ErrUnknownDiscoveryMode = errors.New("unknown discovery mode")
var ErrMissingDiscoveryURL = errors.New("missing discovery url")
var ErrMissingDirectoryFile = errors.New("missing directory file")
var ErrInvalidQueueCapacity = errors.New("queue capacity must be positive")
var ErrInvalidPeriod = errors.New("clock period must be positive")
var ErrMissingHTTPAddr = errors.New("missing http address")
var ErrMissingGRPCAddr = errors.New("missing grpc address")
var ErrMissingStorePath = errors.New("missing store path")
var ErrMissingRaftAddr = errors.New("missing raft address")
var ErrInvalidPeer = errors.New("raft peer needs id and address")
var ErrInvalidLogLevel = errors.New("unknown log level")

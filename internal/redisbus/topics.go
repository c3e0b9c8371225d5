package redisbus

// Channel naming for Redis pub/sub communication.

// StatusChannel is where handled command results are republished.
func StatusChannel(commandChannel string) string {
	return commandChannel + ":status"
}

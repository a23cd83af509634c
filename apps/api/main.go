package main

// TODO: per-identity rate limiting on POST /api/student/question before the upstream quota is hit.
func main() {
	startWithDig()
}

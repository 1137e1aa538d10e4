// gram syncs GitHub repository activity into a local SQLite database and
// computes the aggregate metrics behind the activity dashboard.
package main

func main() {
	Execute()
}

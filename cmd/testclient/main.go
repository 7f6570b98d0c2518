// testclient is a minimal local server for testing the OneID flow end-to-end.
// Register http://localhost:9999/callback as the redirect URI, open the
// gateway's redirect URL, and testclient finishes the login through the
// gateway and prints the result.
//
// Usage:
//
//	go run ./cmd/testclient -gateway http://localhost:8080 -logout
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"html"
	"log"
	"net/http"

	oneid "github.com/gsarma/oneid/sdk"
)

func main() {
	gateway := flag.String("gateway", "http://localhost:8080", "OneID gateway base URL")
	addr := flag.String("addr", ":9999", "listen address")
	logout := flag.Bool("logout", false, "log out of OneID right after a successful login")
	flag.Parse()

	client := oneid.New(*gateway)

	http.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(w, "missing code")
			log.Println("OneID callback received but code was empty")
			return
		}

		res, err := client.Handle(r.Context(), oneid.HandleRequest{Code: code})
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprintln(w, err)
			log.Printf("handle failed: %v", err)
			return
		}
		pretty, _ := json.MarshalIndent(res, "", "  ")
		log.Printf("OneID result:\n%s", pretty)

		if *logout && res.Success && res.Token != nil {
			out, err := client.Logout(r.Context(), *res.Token)
			if err != nil {
				log.Printf("logout failed: %v", err)
			} else {
				log.Printf("logout: %s", out.Message)
			}
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body>
<h2>%s</h2>
<p><strong>PIN:</strong> %s</p>
<pre>%s</pre>
</body></html>`, html.EscapeString(res.Message), html.EscapeString(res.PIN()), html.EscapeString(string(pretty)))
	})

	log.Printf("testclient listening on %s; start a login at %s", *addr, client.RedirectURL())
	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "site":
		handleSite(args)
	case "ticket":
		handleTicket(args)
	case "user":
		handleUser(args)
	case "snapshot":
		dumpSnapshot()
	case "dashboard":
		showDashboard()
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: siteops auth <login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleSite(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: siteops site <list|delete>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listSites()
	case "delete":
		deleteSite(args[1:])
	default:
		fmt.Printf("unknown site command: %s\n", subCmd)
	}
}

func handleTicket(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: siteops ticket <list>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listTickets()
	default:
		fmt.Printf("unknown ticket command: %s\n", subCmd)
	}
}

func handleUser(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: siteops user <list>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listUsers()
	default:
		fmt.Printf("unknown user command: %s\n", subCmd)
	}
}

// Auth commands
func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	empID := fs.String("id", "", "employee id")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *empID == "" || *password == "" {
		fmt.Println("Error: id and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"employeeId": *empID, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *empID)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// Site commands
func listSites() {
	var sites []map[string]interface{}
	if !getJSON("/sites", &sites) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tSTART\tEND")
	for _, s := range sites {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", s["id"], s["name"], s["status"], s["startDate"], s["endDate"])
	}
	w.Flush()
}

func deleteSite(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: siteops site delete <site-id>")
		return
	}

	req, _ := http.NewRequest("DELETE", getAPIURL()+"/sites/"+args[0], nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		fmt.Printf("✓ Site deleted: %s\n", args[0])
	} else {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Delete failed: %v\n", result)
	}
}

// Ticket commands
func listTickets() {
	var tickets []map[string]interface{}
	if !getJSON("/tickets", &tickets) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSITE\tISSUE\tSTATUS\tDATE\tTIME")
	for _, t := range tickets {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\n", t["id"], t["siteId"], t["issue"], t["status"], t["date"], t["time"])
	}
	w.Flush()
}

// User commands
func listUsers() {
	var users []map[string]interface{}
	if !getJSON("/users", &users) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMPLOYEE\tNAME\tROLE\tACTIVE")
	for _, u := range users {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", u["id"], u["employeeId"], u["name"], u["role"], u["active"])
	}
	w.Flush()
}

func dumpSnapshot() {
	req, _ := http.NewRequest("GET", getAPIURL()+"/snapshot", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var snapshot map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&snapshot)
	pretty, _ := json.MarshalIndent(snapshot, "", "  ")
	fmt.Println(string(pretty))
}

func showDashboard() {
	var summary map[string]interface{}
	if !getJSON("/dashboard", &summary) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for key, value := range summary {
		fmt.Fprintf(w, "%s\t%v\n", key, value)
	}
	w.Flush()
}

// Helper functions
func getJSON(path string, out interface{}) bool {
	req, _ := http.NewRequest("GET", getAPIURL()+path, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Request failed: %v\n", result)
		return false
	}
	json.NewDecoder(resp.Body).Decode(out)
	return true
}

func getAPIURL() string {
	if url := os.Getenv("SITEOPS_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.siteops/token"
}

func saveToken(token string) error {
	home, _ := os.UserHomeDir()
	os.MkdirAll(home+"/.siteops", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`SiteOps CLI

Usage:
  siteops <command> [options]

Commands:
  auth       Authentication (login, logout, who)
  site       Site operations (list, delete)
  ticket     After-service ticket operations (list)
  user       Staff account operations (list) - admin access required
  snapshot   Dump the full application snapshot as JSON
  dashboard  Show aggregated counts
  help       Show this help message

Environment Variables:
  SITEOPS_API    API endpoint (default: http://localhost:8080/api)

Examples:
  siteops auth login -id admin -password 931931
  siteops site list
  siteops snapshot
`)
}

// cmd/main.go
package main

import (
	"go-bank-app/app"
)

// @title           Go-Bank Ledger API
// @version         1.0
// @description     A minimal banking API: registration, login, deposit, withdraw, transfer and transaction history.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}

// Package main CapeControl Server API
//
//	@title						CapeControl Server API
//	@version					1.0
//	@description				CapeControl backend API: gated AI queries, usage metering, revenue settlement and subscription management
//
//	@contact.name				CapeControl Support
//	@contact.email				support@capecontrol.io
//
//	@license.name				Proprietary
//
//	@host						localhost:8080
//	@BasePath					/api
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"
//
//	@tag.name					Auth
//	@tag.description			Account registration and login
//
//	@tag.name					AI
//	@tag.description			Gated AI query endpoints
//
//	@tag.name					Billing
//	@tag.description			Usage metering and settlement
//
//	@tag.name					Payments
//	@tag.description			Checkout and subscription management
package main

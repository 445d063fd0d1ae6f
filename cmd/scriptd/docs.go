package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           scriptd API
// @version         1.0
// @description     HTTP API for invoking functions of modules hosted on one embedded runtime.
//
// @contact.name   scriptd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http

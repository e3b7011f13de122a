package main

// General API documentation for swaggo. The served document is registered by
// internal/httpapi.
//
// @title           epubbridge control API
// @version         1.0
// @description     Start, stop and configure the local EPUB converter server.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @host      127.0.0.1:5003
// @BasePath  /
//
// @schemes http

package http

// registerV1Routes sets up the /api/v1 station endpoints.
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware())

	stations := v1.Group("/stations")
	{
		stations.GET("", s.handleV1ListStations)
		stations.GET("/:code", s.handleV1GetStation)
		stations.POST("/within", s.handleV1StationsWithin)
	}
}

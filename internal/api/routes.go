package api

func (s *Server) setupRoutes() {
	s.router.GET("/", s.workerHandler.GetInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	counts := s.router.Group("/counts")
	{
		counts.GET("/latest", s.countsHandler.GetLatest)
		counts.GET("/snapshot", s.countsHandler.GetSnapshot)
	}

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
	}
}

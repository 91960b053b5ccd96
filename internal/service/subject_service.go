package service

import (
	"context"

	"github.com/noah-isme/chemclass-api/internal/dto"
	"github.com/noah-isme/chemclass-api/internal/repository"
)

// SubjectService lists the subjects classes and materials can be tagged with.
type SubjectService interface {
	List(ctx context.Context) ([]dto.SubjectResponse, error)
}

type subjectService struct {
	repo repository.SubjectRepository
}

func NewSubjectService(repo repository.SubjectRepository) SubjectService {
	return &subjectService{repo: repo}
}

func (s *subjectService) List(ctx context.Context) ([]dto.SubjectResponse, error) {
	subjects, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]dto.SubjectResponse, 0, len(subjects))
	for _, subject := range subjects {
		responses = append(responses, dto.SubjectResponse{ID: subject.ID, Name: subject.Name})
	}
	return responses, nil
}
